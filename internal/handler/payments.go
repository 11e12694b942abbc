package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/payment"
	"github.com/nasidaunjeruk/pos/internal/service"
	"github.com/shopspring/decimal"
)

// PaymentService validates payments and checks out the cart.
// Satisfied by *service.POS.
type PaymentService interface {
	Cart() cart.Snapshot
	ValidatePayment(method string, tendered decimal.Decimal) (payment.Result, error)
	Checkout(ctx context.Context, req service.CheckoutRequest) (service.CheckoutResult, error)
}

// PaymentHandler handles payment helpers and checkout.
type PaymentHandler struct {
	svc      PaymentService
	merchant payment.Merchant
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentService, merchant payment.Merchant) *PaymentHandler {
	return &PaymentHandler{svc: svc, merchant: merchant}
}

// RegisterRoutes registers payment endpoints at the root level.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/validate", h.Validate)
	r.Get("/payments/qris", h.QRIS)
	r.Get("/payments/quick-cash", h.QuickCash)
	r.Post("/checkout", h.Checkout)
}

// --- Request / Response types ---

type paymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	Tendered      string `json:"tendered"`
}

type quickCashResponse struct {
	Total       decimal.Decimal   `json:"total"`
	Suggestions []decimal.Decimal `json:"suggestions"`
}

// --- Handlers ---

// Validate checks a payment against the current cart without committing.
func (h *PaymentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	method, tendered, ok := parsePaymentRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ValidatePayment(method, tendered)
	if err != nil {
		writeError(w, "validate payment", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QRIS returns the display payload for ?amount= (default: cart total).
func (h *PaymentHandler) QRIS(w http.ResponseWriter, r *http.Request) {
	amount, ok := h.amountParam(w, r, "amount")
	if !ok {
		return
	}
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		ref = "POS-" + strings.ToUpper(uuid.NewString()[:8])
	}

	qr, err := payment.NewQRIS(amount, ref, h.merchant)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// QuickCash suggests tender amounts for ?total= (default: cart total).
func (h *PaymentHandler) QuickCash(w http.ResponseWriter, r *http.Request) {
	total, ok := h.amountParam(w, r, "total")
	if !ok {
		return
	}
	suggestions := payment.QuickCash(total)
	if suggestions == nil {
		suggestions = []decimal.Decimal{}
	}
	writeJSON(w, http.StatusOK, quickCashResponse{Total: total, Suggestions: suggestions})
}

// Checkout commits the cart as a transaction.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	method, tendered, ok := parsePaymentRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{PaymentMethod: method, Tendered: tendered})
	if err != nil {
		writeError(w, "checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func parsePaymentRequest(w http.ResponseWriter, r *http.Request) (string, decimal.Decimal, bool) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", decimal.Zero, false
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return "", decimal.Zero, false
	}

	tendered, err := payment.ParseTendered(method, req.Tendered)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", decimal.Zero, false
	}
	return method, tendered, true
}

func (h *PaymentHandler) amountParam(w http.ResponseWriter, r *http.Request, name string) (decimal.Decimal, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return h.svc.Cart().Totals.Total, true
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return decimal.Zero, false
	}
	return v, true
}
