package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/remotesync"
)

// SyncService exposes the remote sync queue. Satisfied by *service.POS.
type SyncService interface {
	SyncStats() remotesync.Stats
	SyncStatus(id string) (remotesync.Status, bool)
	FlushSync(ctx context.Context) (remotesync.FlushResult, error)
	TestSyncConnection(ctx context.Context, endpoint string) error
}

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// RegisterRoutes registers sync endpoints. Expected to be mounted at /sync.
func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/transactions/{id}", h.TransactionStatus)
	r.Post("/flush", h.Flush)
	r.Post("/test", h.TestConnection)
}

type testConnectionRequest struct {
	URL string `json:"url"`
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStats())
}

// TransactionStatus reports whether one transaction reached the spreadsheet.
func (h *SyncHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.svc.SyncStatus(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync record for transaction"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Flush sends every queued transaction now, ignoring backoff.
func (h *SyncHandler) Flush(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.FlushSync(r.Context())
	if err != nil {
		writeError(w, "flush sync queue", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TestConnection pings the endpoint in the body, or the configured one when
// the body is empty.
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.svc.TestSyncConnection(r.Context(), req.URL); err != nil {
		writeError(w, "test sync connection", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
