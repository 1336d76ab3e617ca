package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/auth"
	"github.com/angelmondragon/freightdispatch-backend/pkg/config"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "identity", Leeway: time.Second}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, enums.ActorRoleDispatcher, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsCarrierToken(t *testing.T) {
	companyID := uuid.New()
	token := mintTestToken(t, testJWT, enums.ActorRoleCarrier, &companyID)

	var captured struct {
		user    string
		role    string
		company string
	}
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.company = CompanyIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user == "" {
		t.Fatal("expected user id in context")
	}
	if captured.role != string(enums.ActorRoleCarrier) {
		t.Fatalf("expected role carrier got %s", captured.role)
	}
	if captured.company != companyID.String() {
		t.Fatalf("expected company %s got %s", companyID, captured.company)
	}
}

func TestAuthRequiresCompanyForCarrier(t *testing.T) {
	token := mintTestToken(t, testJWT, enums.ActorRoleCarrier, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsSystemRole(t *testing.T) {
	token := mintTestToken(t, testJWT, enums.ActorRoleSystem, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	companyID := uuid.New()
	cases := []struct {
		role enums.ActorRole
		want int
	}{
		{enums.ActorRoleDispatcher, http.StatusOK},
		{enums.ActorRoleAdmin, http.StatusOK},
		{enums.ActorRoleCarrier, http.StatusForbidden},
		{enums.ActorRoleDriver, http.StatusForbidden},
	}
	for _, tc := range cases {
		var company *uuid.UUID
		if tc.role == enums.ActorRoleCarrier {
			company = &companyID
		}
		token := mintTestToken(t, testJWT, tc.role, company)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		Auth(testJWT, nil)(RequireStaff(nil)(okHandler())).ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole, companyID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:    uuid.New(),
		CompanyID: companyID,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
