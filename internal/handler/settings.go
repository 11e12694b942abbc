package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/settings"
)

// SettingsService reads and edits the stall settings.
// Satisfied by *settings.Service.
type SettingsService interface {
	Get() settings.Settings
	Update(ctx context.Context, p settings.Patch) (settings.Settings, error)
	SetPIN(ctx context.Context, role, pin string) error
	VerifyPIN(role, pin string) error
}

type SettingsHandler struct {
	svc SettingsService
}

func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// RegisterRoutes registers the read endpoint. Expected to be mounted at /settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
}

// RegisterOwnerRoutes registers write endpoints behind RequireRole(OWNER).
func (h *SettingsHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Put("/", h.Update)
	r.Put("/pin", h.SetPIN)
}

type settingsResponse struct {
	Settings settings.View `json:"settings"`
	Warnings []string      `json:"warnings,omitempty"`
}

type setPINRequest struct {
	Role       string `json:"role"`
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{Settings: h.svc.Get().View()})
}

// Update applies a partial settings patch.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s, err := h.svc.Update(r.Context(), p)
	var warnings []string
	switch {
	case apperr.IsPersistence(err):
		warnings = append(warnings, err.Error())
	case err != nil:
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: s.View(), Warnings: warnings})
}

// SetPIN changes a role's PIN. The owner PIN must be re-entered once it is set.
func (h *SettingsHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req setPINRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = enum.UserRoleOwner
	}

	if err := h.svc.VerifyPIN(enum.UserRoleOwner, req.CurrentPIN); err != nil && !errors.Is(err, settings.ErrPINNotSet) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "current owner pin does not match"})
		return
	}

	err := h.svc.SetPIN(r.Context(), role, req.NewPIN)
	var warnings []string
	switch {
	case apperr.IsPersistence(err):
		warnings = append(warnings, err.Error())
	case err != nil:
		writeError(w, "set pin", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: h.svc.Get().View(), Warnings: warnings})
}
