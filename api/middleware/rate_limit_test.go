package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func carrierRequest(companyID uuid.UUID, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loads/x/bids", nil)
	req.RemoteAddr = remote
	return req.WithContext(WithActor(req.Context(), types.Actor{
		UserID:    uuid.New(),
		CompanyID: &companyID,
		Role:      enums.ActorRoleCarrier,
	}))
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("bid_submit", time.Minute, 2, 2), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, carrierRequest(uuid.New(), "1.2.3.4:5678"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimit_ActorLimitCountsPerCompany(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("bid_submit", time.Minute, 0, 2), store, nil)(okHandler())
	company := uuid.New()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// different users and IPs of the same carrier share one budget
		handler.ServeHTTP(rec, carrierRequest(company, "10.0.0.1:1000"))

		switch {
		case i < 2 && rec.Code != http.StatusOK:
			t.Fatalf("expected success before limit, got %d", rec.Code)
		case i >= 2:
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, carrierRequest(uuid.New(), "10.0.0.1:1000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("another carrier should have its own budget, got %d", rec.Code)
	}
}

func TestRateLimit_IPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("bid_submit", time.Minute, 1, 0), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, carrierRequest(uuid.New(), "5.6.7.8:1234"))

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}
}

func TestRateLimit_ScopesPerPolicy(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy(" Bid_Submit ", time.Minute, 5, 5), store, nil)(okHandler())
	company := uuid.New()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, carrierRequest(company, "9.9.9.9:1000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	want := []string{"ip:bid_submit:9.9.9.9", "actor:bid_submit:" + company.String()}
	if len(store.scopes) != len(want) {
		t.Fatalf("expected scopes %v, got %v", want, store.scopes)
	}
	for i := range want {
		if store.scopes[i] != want[i] {
			t.Fatalf("scope %d: expected %s, got %s", i, want[i], store.scopes[i])
		}
	}
}

func TestRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("bid_submit", 0, 1, 1), newFakeRateStore(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, carrierRequest(uuid.New(), "5.6.7.8:1234"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	scopes []string
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}
