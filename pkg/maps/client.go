package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
)

const (
	defaultGeocodeURL  = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultDistanceURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	defaultMaxElements = 100
	maxPointsPerSide   = 25

	requestBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Provider is the geo contract the dispatch engine consumes.
type Provider interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
	DistanceMatrix(ctx context.Context, origins, destinations []Coordinates) (*Matrix, error)
	ETA(ctx context.Context, from, to Coordinates) (*time.Time, error)
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) param() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}

// GeocodeResult is a resolved address. Accuracy is Google's location_type
// (ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE).
type GeocodeResult struct {
	Lat              float64
	Lng              float64
	Accuracy         string
	FormattedAddress string
}

// Element is one origin/destination cell of a distance matrix. OK is false
// when Google had no route or the request covering the cell failed.
type Element struct {
	OK              bool
	DistanceMeters  int
	DurationSeconds int
}

// Matrix holds Rows[origin][destination].
type Matrix struct {
	Rows [][]Element
}

// At returns the cell for origin i and destination j.
func (m *Matrix) At(i, j int) Element {
	if m == nil || i >= len(m.Rows) || j >= len(m.Rows[i]) {
		return Element{}
	}
	return m.Rows[i][j]
}

// Client calls the Google Geocoding and Distance Matrix web services.
type Client struct {
	httpClient  *http.Client
	geocodeURL  string
	distanceURL string
	apiKey      string
	maxElements int
	limiter     *rate.Limiter
	now         func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGeocodeURL overrides the geocoding endpoint.
func WithGeocodeURL(u string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			c.geocodeURL = trimmed
		}
	}
}

// WithDistanceURL overrides the distance matrix endpoint.
func WithDistanceURL(u string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			c.distanceURL = trimmed
		}
	}
}

// WithGeocodeSpacing spaces consecutive geocode calls by at least d.
func WithGeocodeSpacing(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithMaxElements caps origins*destinations per matrix request.
func WithMaxElements(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxElements = n
		}
	}
}

// WithClock overrides the time source used for ETAs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the Google Maps client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:      trimmedKey,
		geocodeURL:  defaultGeocodeURL,
		distanceURL: defaultDistanceURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxElements: defaultMaxElements,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Geocode resolves a free-text address. It returns nil, nil when Google has
// no match for the address.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "google maps client not configured")
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "geocode throttle")
	}

	params := url.Values{}
	params.Set("address", trimmed)
	params.Set("key", c.apiKey)

	var apiResp struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				LocationType string `json:"location_type"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodeURL, params, "geocode", &apiResp); err != nil {
		return nil, err
	}

	switch apiResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, fmt.Sprintf("geocode status %s: %s", apiResp.Status, apiResp.ErrorMessage))
	}
	if len(apiResp.Results) == 0 {
		return nil, nil
	}

	first := apiResp.Results[0]
	return &GeocodeResult{
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		Accuracy:         first.Geometry.LocationType,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

// DistanceMatrix returns driving distance and duration for every origin and
// destination pair. Large inputs are split into requests within Google's
// per-request limits. A failed request leaves its cells not OK; an error is
// returned only when no request succeeded.
func (c *Client) DistanceMatrix(ctx context.Context, origins, destinations []Coordinates) (*Matrix, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, "google maps client not configured")
	}
	matrix := &Matrix{Rows: make([][]Element, len(origins))}
	for i := range matrix.Rows {
		matrix.Rows[i] = make([]Element, len(destinations))
	}
	if len(origins) == 0 || len(destinations) == 0 {
		return matrix, nil
	}

	originStep := min(maxPointsPerSide, len(origins), c.maxElements)
	destStep := max(1, min(maxPointsPerSide, c.maxElements/originStep))

	var (
		succeeded int
		lastErr   error
	)
	for oStart := 0; oStart < len(origins); oStart += originStep {
		oEnd := min(oStart+originStep, len(origins))
		for dStart := 0; dStart < len(destinations); dStart += destStep {
			dEnd := min(dStart+destStep, len(destinations))
			if err := c.fillChunk(ctx, matrix, origins, destinations, oStart, oEnd, dStart, dEnd); err != nil {
				lastErr = err
				continue
			}
			succeeded++
		}
	}

	if succeeded == 0 {
		return nil, lastErr
	}
	return matrix, nil
}

func (c *Client) fillChunk(ctx context.Context, matrix *Matrix, origins, destinations []Coordinates, oStart, oEnd, dStart, dEnd int) error {
	params := url.Values{}
	params.Set("origins", joinCoordinates(origins[oStart:oEnd]))
	params.Set("destinations", joinCoordinates(destinations[dStart:dEnd]))
	params.Set("mode", "driving")
	params.Set("key", c.apiKey)

	var apiResp struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Rows         []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int `json:"value"`
				} `json:"distance"`
				Duration struct {
					Value int `json:"value"`
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := c.getJSON(ctx, c.distanceURL, params, "distance matrix", &apiResp); err != nil {
		return err
	}
	if apiResp.Status != "OK" {
		return pkgerrors.New(pkgerrors.CodeUpstreamUnavailable, fmt.Sprintf("distance matrix status %s: %s", apiResp.Status, apiResp.ErrorMessage))
	}

	for i, row := range apiResp.Rows {
		if oStart+i >= oEnd {
			break
		}
		for j, el := range row.Elements {
			if dStart+j >= dEnd {
				break
			}
			if el.Status != "OK" {
				continue
			}
			matrix.Rows[oStart+i][dStart+j] = Element{
				OK:              true,
				DistanceMeters:  el.Distance.Value,
				DurationSeconds: el.Duration.Value,
			}
		}
	}
	return nil
}

// ETA returns the arrival time at to when leaving from now, or nil when no
// route exists.
func (c *Client) ETA(ctx context.Context, from, to Coordinates) (*time.Time, error) {
	matrix, err := c.DistanceMatrix(ctx, []Coordinates{from}, []Coordinates{to})
	if err != nil {
		return nil, err
	}
	el := matrix.At(0, 0)
	if !el.OK {
		return nil, nil
	}
	eta := c.now().UTC().Add(time.Duration(el.DurationSeconds) * time.Second)
	return &eta, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, op string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "build "+op+" request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamUnavailable, err, "decode "+op+" response")
	}
	return nil
}

func joinCoordinates(points []Coordinates) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = p.param()
	}
	return strings.Join(parts, "|")
}
