package cart

import (
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/shopspring/decimal"
)

// Line is one entry in the cart. Quantity is always >= 1; a line whose
// quantity drops to zero is removed.
type Line struct {
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Topping     *menu.Topping   `json:"topping,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Subtotal is UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DisplayName includes the topping, e.g. "Nasi Daun Jeruk (Ayam Suwir)".
func (l Line) DisplayName() string {
	if l.Topping == nil {
		return l.Name
	}
	return l.Name + " (" + l.Topping.Name + ")"
}

func (l Line) toppingKey() string {
	if l.Topping == nil {
		return ""
	}
	return l.Topping.Key
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	if l.Topping != nil {
		t := *l.Topping
		l.Topping = &t
	}
	return l
}

// CloneLines deep-copies a line slice.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// Totals are derived from the line list. Total = Subtotal - Discount.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	DiscountLabel string          `json:"discount_label,omitempty"`
}

// ComputeTotals sums the lines and applies policy. The discount is clamped
// to [0, subtotal]. A nil policy means no discount.
func ComputeTotals(lines []Line, policy DiscountPolicy) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		count += l.Quantity
	}

	discount := decimal.Zero
	label := ""
	if policy != nil {
		discount = policy.Discount(lines)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
		if discount.IsPositive() {
			label = policy.Name()
		}
	}

	return Totals{
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         subtotal.Sub(discount),
		ItemCount:     count,
		DiscountLabel: label,
	}
}
