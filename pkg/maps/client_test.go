package maps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
)

func TestGeocodeParsesFirstResult(t *testing.T) {
	var capturedQuery string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedQuery = req.URL.RawQuery
		return jsonResponse(http.StatusOK, `{"status":"OK","results":[{"formatted_address":"1 Dock Rd, Memphis, TN","geometry":{"location":{"lat":35.1495,"lng":-90.049},"location_type":"ROOFTOP"}}]}`), nil
	})

	client, err := NewClient("test-key", WithGeocodeURL("http://maps.test/geocode"), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	result, err := client.Geocode(context.Background(), " 1 Dock Rd, Memphis ")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 35.1495, result.Lat)
	require.Equal(t, -90.049, result.Lng)
	require.Equal(t, "ROOFTOP", result.Accuracy)
	require.Contains(t, capturedQuery, "key=test-key")
	require.Contains(t, capturedQuery, "address=1+Dock+Rd%2C+Memphis")
}

func TestGeocodeZeroResultsIsNil(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`), nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	result, err := client.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestGeocodeUpstreamErrors(t *testing.T) {
	cases := map[string]*http.Response{
		"denied":      jsonResponse(http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key"}`),
		"http status": jsonResponse(http.StatusBadGateway, `upstream down`),
		"bad json":    jsonResponse(http.StatusOK, `{`),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			rt := roundTripFunc(func(*http.Request) (*http.Response, error) { return resp, nil })
			client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
			require.NoError(t, err)

			_, err = client.Geocode(context.Background(), "1 Main St")
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstreamUnavailable), "got %v", err)
		})
	}
}

func TestGeocodeRequiresAddress(t *testing.T) {
	client, err := NewClient("k")
	require.NoError(t, err)
	_, err = client.Geocode(context.Background(), "  ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGeocodeSpacing(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"ZERO_RESULTS"}`), nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}), WithGeocodeSpacing(40*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Geocode(context.Background(), fmt.Sprintf("%d Main St", i))
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ")
	require.ErrorIs(t, err, errAPIKeyRequired)
}

func TestDistanceMatrixChunksAndMerges(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		dests := strings.Split(r.URL.Query().Get("destinations"), "|")
		require.LessOrEqual(t, len(origins)*len(dests), 100)
		require.LessOrEqual(t, len(dests), 25)
		writeMatrix(w, len(origins), len(dests), 1609)
	}))
	defer srv.Close()

	client, err := NewClient("k", WithDistanceURL(srv.URL))
	require.NoError(t, err)

	origins := points(3)
	dests := points(40)
	matrix, err := client.DistanceMatrix(context.Background(), origins, dests)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, matrix.Rows, 3)
	for i := range origins {
		require.Len(t, matrix.Rows[i], 40)
		for j := range dests {
			require.True(t, matrix.At(i, j).OK)
			require.Equal(t, 1609, matrix.At(i, j).DistanceMeters)
		}
	}
}

func TestDistanceMatrixPartialFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		dests := strings.Split(r.URL.Query().Get("destinations"), "|")
		writeMatrix(w, len(origins), len(dests), 500)
	}))
	defer srv.Close()

	client, err := NewClient("k", WithDistanceURL(srv.URL), WithMaxElements(2))
	require.NoError(t, err)

	matrix, err := client.DistanceMatrix(context.Background(), points(1), points(4))
	require.NoError(t, err)
	require.True(t, matrix.At(0, 0).OK)
	require.True(t, matrix.At(0, 1).OK)
	require.False(t, matrix.At(0, 2).OK)
	require.False(t, matrix.At(0, 3).OK)
}

func TestDistanceMatrixAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`)
	}))
	defer srv.Close()

	client, err := NewClient("k", WithDistanceURL(srv.URL))
	require.NoError(t, err)

	matrix, err := client.DistanceMatrix(context.Background(), points(2), points(2))
	require.Nil(t, matrix)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstreamUnavailable))
}

func TestDistanceMatrixElementStatus(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":1000},"duration":{"value":60}},{"status":"ZERO_RESULTS"}]}]}`), nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	matrix, err := client.DistanceMatrix(context.Background(), points(1), points(2))
	require.NoError(t, err)
	require.Equal(t, Element{OK: true, DistanceMeters: 1000, DurationSeconds: 60}, matrix.At(0, 0))
	require.False(t, matrix.At(0, 1).OK)
	require.False(t, matrix.At(5, 5).OK)
}

func TestDistanceMatrixEmptyInputs(t *testing.T) {
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})}))
	require.NoError(t, err)

	matrix, err := client.DistanceMatrix(context.Background(), nil, points(3))
	require.NoError(t, err)
	require.Empty(t, matrix.Rows)
}

func TestETAAddsDuration(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":80000},"duration":{"value":3600}}]}]}`), nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	eta, err := client.ETA(context.Background(), Coordinates{Lat: 35, Lng: -90}, Coordinates{Lat: 36, Lng: -86})
	require.NoError(t, err)
	require.NotNil(t, eta)
	require.Equal(t, fixed.Add(time.Hour), *eta)
}

func TestETANoRoute(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`), nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	eta, err := client.ETA(context.Background(), Coordinates{}, Coordinates{Lat: 1, Lng: 1})
	require.NoError(t, err)
	require.Nil(t, eta)
}

func points(n int) []Coordinates {
	out := make([]Coordinates, n)
	for i := range out {
		out[i] = Coordinates{Lat: 30 + float64(i)*0.01, Lng: -90}
	}
	return out
}

func writeMatrix(w http.ResponseWriter, origins, dests, meters int) {
	var b strings.Builder
	b.WriteString(`{"status":"OK","rows":[`)
	for i := 0; i < origins; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"elements":[`)
		for j := 0; j < dests; j++ {
			if j > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"status":"OK","distance":{"value":%d},"duration":{"value":%d}}`, meters, meters/20)
		}
		b.WriteString("]}")
	}
	b.WriteString("]}")
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, b.String())
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
