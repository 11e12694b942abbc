package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nasidaunjeruk/pos/internal/auth"
	"github.com/nasidaunjeruk/pos/internal/handler"
	"github.com/nasidaunjeruk/pos/internal/settings"
)

// --- Mock verifier ---

type mockPINVerifier struct {
	verifyFn func(role, pin string) error
}

func (m *mockPINVerifier) VerifyPIN(role, pin string) error {
	return m.verifyFn(role, pin)
}

func pinsAccepting(valid map[string]string) *mockPINVerifier {
	return &mockPINVerifier{verifyFn: func(role, pin string) error {
		want, ok := valid[role]
		if !ok {
			return settings.ErrPINNotSet
		}
		if pin != want {
			return settings.ErrPINMismatch
		}
		return nil
	}}
}

func setupAuthRouter(pins handler.PINVerifier) http.Handler {
	h := handler.NewAuthHandler(pins, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// --- Login tests ---

func TestLogin_ValidPIN(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{"OWNER": "1234"}))

	rr := postJSON(t, r, "/auth/login", map[string]string{
		"role":     "owner",
		"pin":      "1234",
		"terminal": "kasir-depan",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	access, _ := resp["access_token"].(string)
	if access == "" {
		t.Fatal("expected non-empty access_token")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}

	claims, err := auth.ValidateToken(testSecret, access)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.Role != "OWNER" || claims.Terminal != "kasir-depan" {
		t.Errorf("unexpected claims %+v", claims)
	}

	session, ok := resp["session"].(map[string]interface{})
	if !ok {
		t.Fatal("expected session object in response")
	}
	if session["role"] != "OWNER" {
		t.Errorf("session role: got %v, want OWNER", session["role"])
	}
}

func TestLogin_DefaultsToCashier(t *testing.T) {
	var gotRole string
	pins := &mockPINVerifier{verifyFn: func(role, pin string) error {
		gotRole = role
		return nil
	}}
	r := setupAuthRouter(pins)

	rr := postJSON(t, r, "/auth/login", map[string]string{"pin": ""})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if gotRole != "CASHIER" {
		t.Errorf("role: got %q, want CASHIER", gotRole)
	}
}

func TestLogin_WrongPIN(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{"OWNER": "1234"}))

	rr := postJSON(t, r, "/auth/login", map[string]string{"role": "OWNER", "pin": "9999"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_OwnerPINNotSet(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/login", map[string]string{"role": "OWNER", "pin": "1234"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "owner pin not configured" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestLogin_UnknownRole(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/login", map[string]string{"role": "MANAGER", "pin": "1234"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/login", "not-an-object")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Refresh tests ---

func TestRefresh_ValidToken(t *testing.T) {
	sid := uuid.New()
	refresh, err := auth.GenerateRefreshToken(testSecret, sid, "kasir-1", "CASHIER")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	claims, err := auth.ValidateToken(testSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.SessionID != sid || claims.Role != "CASHIER" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/refresh", map[string]string{"refresh_token": "garbage"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_MissingField(t *testing.T) {
	r := setupAuthRouter(pinsAccepting(map[string]string{}))

	rr := postJSON(t, r, "/auth/refresh", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
