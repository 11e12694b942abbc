package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nasidaunjeruk/pos/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	sessionID := uuid.New()
	role := "CASHIER"

	token, err := auth.GenerateToken(secret, sessionID, "kasir-1", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.SessionID != sessionID {
		t.Errorf("session ID: got %v, want %v", claims.SessionID, sessionID)
	}
	if claims.Terminal != "kasir-1" {
		t.Errorf("terminal: got %v, want kasir-1", claims.Terminal)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "kasir-1", "CASHIER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	sessionID := uuid.New()
	token, err := auth.GenerateRefreshToken("secret", sessionID, "kasir-2", "OWNER")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	sid, terminal, role, err := auth.ValidateRefreshToken("secret", token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if sid != sessionID || terminal != "kasir-2" || role != "OWNER" {
		t.Errorf("unexpected refresh claims %v %q %q", sid, terminal, role)
	}
}

func TestRefreshTokenIsNotAccessToken(t *testing.T) {
	token, err := auth.GenerateRefreshToken("secret", uuid.New(), "kasir-1", "OWNER")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected refresh token to be rejected as access token")
	}
}
