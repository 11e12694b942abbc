package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/nasidaunjeruk/pos/internal/storage"
)

// Limits from the stall's validation rules.
const (
	MaxQuantityPerLine = 99
	MaxLines           = 50
)

// Errors returned by the cart manager. All are wrapped in *apperr.ValidationError.
var (
	ErrToppingRequired = errors.New("topping required")
	ErrUnknownTopping  = errors.New("unknown topping for item")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrQuantityLimit   = fmt.Errorf("quantity per item cannot exceed %d", MaxQuantityPerLine)
	ErrTooManyLines    = fmt.Errorf("cart cannot hold more than %d lines", MaxLines)
)

// AddOptions qualifies an AddItem call.
type AddOptions struct {
	Topping     string
	Quantity    int // defaults to 1
	Description string
}

// Snapshot is a deep copy of the cart with its totals.
type Snapshot struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

type persistedCart struct {
	Lines []Line `json:"lines"`
}

// Manager owns the cart lines. Every mutation recomputes totals on demand and
// persists the line list. When persisting fails the mutation stays applied and
// the error is returned as *apperr.PersistenceError.
//
// Manager is not safe for concurrent use; the POS service serialises access.
type Manager struct {
	catalog *menu.Catalog
	policy  DiscountPolicy
	store   storage.Store
	lines   []Line
}

// NewManager creates an empty cart manager.
func NewManager(catalog *menu.Catalog, policy DiscountPolicy, store storage.Store) *Manager {
	if policy == nil {
		policy = NoDiscount{}
	}
	return &Manager{catalog: catalog, policy: policy, store: store}
}

// Restore loads the persisted cart. A missing cart leaves the manager empty.
// Lines with a non-positive quantity are dropped.
func (m *Manager) Restore(ctx context.Context) error {
	var pc persistedCart
	err := m.store.Load(ctx, storage.KeyCart, &pc)
	if errors.Is(err, storage.ErrNotFound) {
		m.lines = nil
		return nil
	}
	if err != nil {
		m.lines = nil
		return apperr.Persistence("load", storage.KeyCart, err)
	}

	m.lines = m.lines[:0]
	for _, l := range pc.Lines {
		if l.Quantity > 0 {
			m.lines = append(m.lines, l)
		}
	}
	return nil
}

// AddItem adds itemID to the cart. A line with the same item and topping is
// incremented; otherwise a new line is appended.
func (m *Manager) AddItem(ctx context.Context, itemID string, opts AddOptions) error {
	item, err := m.catalog.Get(itemID)
	if err != nil {
		return apperr.Validation("item_id", err)
	}

	qty := opts.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return apperr.Validation("quantity", ErrInvalidQuantity)
	}

	var topping *menu.Topping
	switch {
	case item.RequiresTopping() && opts.Topping == "":
		return apperr.Validation("topping", ErrToppingRequired)
	case opts.Topping != "":
		t, ok := item.Topping(opts.Topping)
		if !ok {
			return apperr.Validation("topping", ErrUnknownTopping)
		}
		topping = &t
	}

	key := ""
	if topping != nil {
		key = topping.Key
	}
	for i := range m.lines {
		if m.lines[i].ItemID == itemID && m.lines[i].toppingKey() == key {
			if m.lines[i].Quantity+qty > MaxQuantityPerLine {
				return apperr.Validation("quantity", ErrQuantityLimit)
			}
			m.lines[i].Quantity += qty
			return m.persist(ctx)
		}
	}

	if len(m.lines) >= MaxLines {
		return apperr.Validation("item_id", ErrTooManyLines)
	}
	if qty > MaxQuantityPerLine {
		return apperr.Validation("quantity", ErrQuantityLimit)
	}

	unitPrice := item.BasePrice
	if topping != nil {
		unitPrice = unitPrice.Add(topping.Price)
	}
	m.lines = append(m.lines, Line{
		ItemID:      item.ID,
		Name:        item.Name,
		Category:    item.Category,
		UnitPrice:   unitPrice,
		Quantity:    qty,
		Topping:     topping,
		Description: opts.Description,
	})
	return m.persist(ctx)
}

// UpdateQuantity adds delta to the line at idx and removes the line when the
// result is <= 0. An out-of-range idx is a no-op.
func (m *Manager) UpdateQuantity(ctx context.Context, idx, delta int) error {
	if idx < 0 || idx >= len(m.lines) {
		return nil
	}
	next := m.lines[idx].Quantity + delta
	if next > MaxQuantityPerLine {
		return apperr.Validation("quantity", ErrQuantityLimit)
	}
	if next <= 0 {
		m.lines = append(m.lines[:idx], m.lines[idx+1:]...)
	} else {
		m.lines[idx].Quantity = next
	}
	return m.persist(ctx)
}

// RemoveLine deletes the line at idx. An out-of-range idx is a no-op.
func (m *Manager) RemoveLine(ctx context.Context, idx int) error {
	if idx < 0 || idx >= len(m.lines) {
		return nil
	}
	m.lines = append(m.lines[:idx], m.lines[idx+1:]...)
	return m.persist(ctx)
}

// Clear empties the cart.
func (m *Manager) Clear(ctx context.Context) error {
	m.lines = nil
	return m.persist(ctx)
}

// Len returns the number of lines.
func (m *Manager) Len() int { return len(m.lines) }

// IsEmpty reports whether the cart has no lines.
func (m *Manager) IsEmpty() bool { return len(m.lines) == 0 }

// Lines returns a deep copy of the cart lines.
func (m *Manager) Lines() []Line { return CloneLines(m.lines) }

// Totals computes subtotal, discount and total for the current lines.
func (m *Manager) Totals() Totals { return ComputeTotals(m.lines, m.policy) }

// Snapshot returns the lines and totals together.
func (m *Manager) Snapshot() Snapshot {
	lines := m.Lines()
	if lines == nil {
		lines = []Line{}
	}
	return Snapshot{Lines: lines, Totals: m.Totals()}
}

// Policy returns the active discount policy.
func (m *Manager) Policy() DiscountPolicy { return m.policy }

func (m *Manager) persist(ctx context.Context) error {
	lines := m.lines
	if lines == nil {
		lines = []Line{}
	}
	return apperr.Persistence("save", storage.KeyCart, m.store.Save(ctx, storage.KeyCart, persistedCart{Lines: lines}))
}
