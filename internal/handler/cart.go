package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/service"
)

// CartService is the cart surface of the POS. Satisfied by *service.POS.
type CartService interface {
	Cart() cart.Snapshot
	AddItem(ctx context.Context, itemID string, opts cart.AddOptions) (service.CartResult, error)
	UpdateQuantity(ctx context.Context, idx, delta int) (service.CartResult, error)
	RemoveLine(ctx context.Context, idx int) (service.CartResult, error)
	ClearCart(ctx context.Context) (service.CartResult, error)
}

// CartHandler handles the cashier's working cart.
type CartHandler struct {
	svc CartService
}

func NewCartHandler(svc CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints.
// Expected to be mounted at /cart.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{idx}", h.UpdateQuantity)
	r.Delete("/items/{idx}", h.RemoveLine)
}

type addItemRequest struct {
	ItemID      string `json:"item_id"`
	Topping     string `json:"topping"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

type updateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.CartResult{Cart: h.svc.Cart()})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_id is required"})
		return
	}

	res, err := h.svc.AddItem(r.Context(), req.ItemID, cart.AddOptions{
		Topping:     req.Topping,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must not be zero"})
		return
	}

	res, err := h.svc.UpdateQuantity(r.Context(), idx, req.Delta)
	if err != nil {
		writeError(w, "update cart quantity", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RemoveLine(r.Context(), idx)
	if err != nil {
		writeError(w, "remove cart line", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ClearCart(r.Context())
	if err != nil {
		writeError(w, "clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid line index"})
		return 0, false
	}
	return idx, true
}
