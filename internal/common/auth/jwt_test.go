package auth

import (
	"testing"
	"time"

	"github.com/CustodiaTrack/CustodiaTrack/internal/common/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "custodiatrack",
		Audience:  "custodia-api",
	}
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	cfg := testAuthConfig()

	token, expiresAt, err := GenerateAccessToken(cfg, "person-1", "custodian", []string{"custodian", "requester"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "person-1" {
		t.Fatalf("expected subject person-1, got %s", claims.Subject)
	}
	if claims.ActiveRole != "custodian" {
		t.Fatalf("expected active_role custodian, got %s", claims.ActiveRole)
	}
	if len(claims.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(claims.Roles))
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := GenerateAccessToken(cfg, "person-1", "guard", []string{"guard"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	bad := cfg
	bad.JWTSecret = "other-secret"
	if _, err := ParseAccessToken(bad, token); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := GenerateAccessToken(cfg, "person-1", "guard", []string{"guard"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected parse to fail with wrong issuer")
	}
}
