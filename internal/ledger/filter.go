package ledger

import (
	"strings"
	"time"
)

// Filter narrows a ledger view. Zero fields match everything.
// From is inclusive, To is exclusive.
type Filter struct {
	From          time.Time
	To            time.Time
	PaymentMethod string
	Search        string
}

// Match reports whether tx passes the filter. Search matches the transaction
// id or any line item name, case-insensitively.
func (f Filter) Match(tx Transaction) bool {
	if !f.From.IsZero() && tx.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.Timestamp.Before(f.To) {
		return false
	}
	if f.PaymentMethod != "" && !strings.EqualFold(tx.PaymentMethod, f.PaymentMethod) {
		return false
	}
	if f.Search == "" {
		return true
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	if strings.Contains(strings.ToLower(tx.ID), term) {
		return true
	}
	for _, l := range tx.Items {
		if strings.Contains(strings.ToLower(l.DisplayName()), term) {
			return true
		}
	}
	return false
}

// Day returns a filter covering the calendar day of t in t's location.
func Day(t time.Time) Filter {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Filter{From: start, To: start.AddDate(0, 0, 1)}
}
