package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/common/auth"
	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
	"github.com/CustodiaTrack/CustodiaTrack/internal/identity"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		Issuer:      "custodiatrack",
		Audience:    "custodia-api",
		PublicPaths: []string{"/healthz", "/api/v1/token"},
	}
}

func TestJWTAuthInjectsCaller(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := auth.GenerateAccessToken(cfg, "p-1", identity.RoleCustodian, []string{identity.RoleRequester}, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	var got identity.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		if !ok {
			t.Fatal("caller missing from context")
		}
		got = c
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	JWTAuth(cfg, nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.PersonID != "p-1" || got.ActiveRole != identity.RoleCustodian {
		t.Fatalf("caller = %+v", got)
	}
	if !got.HasCapability(identity.RoleRequester) {
		t.Fatal("held roles not carried through")
	}
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	cfg := testAuthConfig()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	rec := httptest.NewRecorder()
	JWTAuth(cfg, nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthRejectsBadToken(t *testing.T) {
	cfg := testAuthConfig()
	other := cfg
	other.JWTSecret = "different-secret"
	token, _, err := auth.GenerateAccessToken(other, "p-1", "", nil, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	JWTAuth(cfg, nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthPublicPaths(t *testing.T) {
	cfg := testAuthConfig()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/token", nil)
	rec := httptest.NewRecorder()
	JWTAuth(cfg, nil)(next).ServeHTTP(rec, req)

	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("public path blocked: reached=%v status=%d", reached, rec.Code)
	}
}

func TestJWTAuthDisabledPassesThrough(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Enabled = false
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	rec := httptest.NewRecorder()
	JWTAuth(cfg, nil)(next).ServeHTTP(rec, req)

	if !reached {
		t.Fatal("disabled auth should pass requests through")
	}
}
