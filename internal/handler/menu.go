package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/shopspring/decimal"
)

// MenuSource lists the catalog. Satisfied by *service.POS.
type MenuSource interface {
	Menu() []menu.MenuItem
}

// MenuHandler serves the catalog.
type MenuHandler struct {
	src MenuSource
}

func NewMenuHandler(src MenuSource) *MenuHandler {
	return &MenuHandler{src: src}
}

func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu", h.List)
}

type toppingResponse struct {
	Key   string          `json:"key"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type menuItemResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Category        string            `json:"category"`
	BasePrice       decimal.Decimal   `json:"base_price"`
	RequiresTopping bool              `json:"requires_topping"`
	Toppings        []toppingResponse `json:"toppings"`
}

func toMenuItemResponse(m menu.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		Category:        m.Category,
		BasePrice:       m.BasePrice,
		RequiresTopping: m.RequiresTopping(),
		Toppings:        []toppingResponse{},
	}
	for _, key := range m.ToppingKeys() {
		t, _ := m.Topping(key)
		resp.Toppings = append(resp.Toppings, toppingResponse{Key: t.Key, Name: t.Name, Price: t.Price})
	}
	return resp
}

// List returns the menu, optionally filtered by ?category=.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	resp := []menuItemResponse{}
	for _, item := range h.src.Menu() {
		if category != "" && item.Category != category {
			continue
		}
		resp = append(resp, toMenuItemResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}
