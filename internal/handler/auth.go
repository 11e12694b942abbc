package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nasidaunjeruk/pos/internal/auth"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/settings"
	"github.com/sirupsen/logrus"
)

// PINVerifier checks a role's PIN. Satisfied by *settings.Service.
type PINVerifier interface {
	VerifyPIN(role, pin string) error
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	pins      PINVerifier
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(pins PINVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{pins: pins, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Role     string `json:"role"`
	Pin      string `json:"pin"`
	Terminal string `json:"terminal"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Session      sessionResponse `json:"session"`
}

type sessionResponse struct {
	ID       uuid.UUID `json:"id"`
	Terminal string    `json:"terminal"`
	Role     string    `json:"role"`
}

// --- Handlers ---

// Login unlocks a role with its PIN. The role defaults to CASHIER.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = enum.UserRoleCashier
	}
	if role != enum.UserRoleOwner && role != enum.UserRoleCashier {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role"})
		return
	}

	if err := h.pins.VerifyPIN(role, req.Pin); err != nil {
		if errors.Is(err, settings.ErrPINNotSet) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "owner pin not configured"})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid pin"})
		return
	}

	terminal := strings.TrimSpace(req.Terminal)
	if terminal == "" {
		terminal = "kasir"
	}
	h.respondWithTokens(w, uuid.New(), terminal, role)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	sid, terminal, role, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}
	h.respondWithTokens(w, sid, terminal, role)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, sid uuid.UUID, terminal, role string) {
	access, err := auth.GenerateToken(h.jwtSecret, sid, terminal, role)
	if err != nil {
		logrus.WithError(err).Error("generate access token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	refresh, err := auth.GenerateRefreshToken(h.jwtSecret, sid, terminal, role)
	if err != nil {
		logrus.WithError(err).Error("generate refresh token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Session:      sessionResponse{ID: sid, Terminal: terminal, Role: role},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode JSON response")
	}
}
