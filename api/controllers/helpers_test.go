package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/api/middleware"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func dispatcherActor() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.ActorRoleDispatcher}
}

func carrierActor(companyID uuid.UUID) types.Actor {
	return types.Actor{UserID: uuid.New(), CompanyID: &companyID, Role: enums.ActorRoleCarrier}
}

// newRequest builds a request carrying the actor and chi path params.
func newRequest(t *testing.T, method, target string, body any, actor *types.Actor, params map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}
