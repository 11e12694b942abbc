package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/report"
)

// ReportsSource supplies the ledger entries reports are computed from.
// Satisfied by *service.POS.
type ReportsSource interface {
	Transactions(f ledger.Filter) []ledger.Transaction
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	src ReportsSource
	loc *time.Location
	now func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. Days are bucketed in loc.
func NewReportsHandler(src ReportsSource, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportsHandler{src: src, loc: loc, now: time.Now}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at /reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/daily", h.DailySales)
	r.Get("/product-sales", h.ProductSales)
	r.Get("/payment-summary", h.PaymentSummary)
	r.Get("/hourly-sales", h.HourlySales)
}

// rangeTxs returns the transactions inside the requested range, defaulting
// to the last 30 days.
func (h *ReportsHandler) rangeTxs(w http.ResponseWriter, r *http.Request) ([]ledger.Transaction, bool) {
	from, to, err := parseDateRange(r, h.loc, h.now(), 30)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	return h.src.Transactions(ledger.Filter{From: from, To: to}), true
}

// Summary returns count, items sold, revenue and average order for the range.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.rangeTxs(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(txs))
}

// DailySales returns per-day sales totals for a given date range.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.rangeTxs(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.DailySales(txs, h.loc))
}

// ProductSales returns per-item quantities, best sellers first.
func (h *ReportsHandler) ProductSales(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.rangeTxs(w, r)
	if !ok {
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, report.ProductSales(txs, limit))
}

// PaymentSummary returns the cash/QRIS split.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.rangeTxs(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.PaymentSummary(txs))
}

// HourlySales returns order counts per hour of day.
func (h *ReportsHandler) HourlySales(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.rangeTxs(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.HourlySales(txs, h.loc))
}

// parseDateRange reads ?from= and ?to= (YYYY-MM-DD, inclusive) in loc and
// returns [from, to+1day). When defaultDays > 0 a missing from defaults to
// that many days before today and a missing to defaults to today; otherwise
// missing bounds stay zero (unbounded).
func parseDateRange(r *http.Request, loc *time.Location, now time.Time, defaultDays int) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var from, to time.Time
	if defaultDays > 0 {
		from = today.AddDate(0, 0, -defaultDays)
		to = today.AddDate(0, 0, 1)
	}

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = t
	}

	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		// Make to exclusive by adding 1 day
		to = t.AddDate(0, 0, 1)
	}

	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}
