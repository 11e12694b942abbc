package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/shopspring/decimal"
)

// Transaction is a completed checkout. It is never mutated after commit,
// only deleted.
type Transaction struct {
	ID            string              `json:"id"`
	Timestamp     time.Time           `json:"timestamp"`
	Items         []cart.Line         `json:"items"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	DiscountLabel string              `json:"discount_label,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	CashPaid      decimal.NullDecimal `json:"cash_paid"`
	Change        decimal.Decimal     `json:"change"`
	Status        string              `json:"status"`
}

// Clone returns a deep copy.
func (t Transaction) Clone() Transaction {
	t.Items = cart.CloneLines(t.Items)
	return t
}

// ItemSummary renders the lines as "Name xN; Name xN".
func (t Transaction) ItemSummary() string {
	parts := make([]string, len(t.Items))
	for i, l := range t.Items {
		parts[i] = fmt.Sprintf("%s x%d", l.DisplayName(), l.Quantity)
	}
	return strings.Join(parts, "; ")
}

// ItemCount is the number of lines on the transaction.
func (t Transaction) ItemCount() int { return len(t.Items) }

// Quantity is the total number of units sold.
func (t Transaction) Quantity() int {
	n := 0
	for _, l := range t.Items {
		n += l.Quantity
	}
	return n
}

// PaymentInfo describes how a cart was paid.
type PaymentInfo struct {
	Method   string
	Tendered decimal.Decimal // cash only
	Change   decimal.Decimal
}
