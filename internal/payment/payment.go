package payment

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors describing why a payment is not valid.
var (
	ErrInvalidTotal     = errors.New("total must be > 0")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrUnknownMethod    = errors.New("unknown payment method")
	ErrInvalidTendered  = errors.New("invalid tendered amount")
	ErrTenderedRequired = errors.New("tendered amount is required for cash payments")
)

// Result is the outcome of validating a payment. It is a pure function of
// the inputs; nothing is stored.
type Result struct {
	Method    string          `json:"payment_method"`
	Valid     bool            `json:"valid"`
	Total     decimal.Decimal `json:"total"`
	Tendered  decimal.Decimal `json:"tendered"`
	Change    decimal.Decimal `json:"change"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Message   string          `json:"message"`
}

// Err returns the reason the payment is invalid, or nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	if !r.Total.IsPositive() {
		return ErrInvalidTotal
	}
	if r.Method == enum.PaymentMethodCash {
		return fmt.Errorf("%w: short by %s", ErrInsufficientCash, r.Shortfall.StringFixed(0))
	}
	return ErrInvalidTotal
}

// ValidateCash checks tendered cash against total.
// valid = tendered >= total && total > 0; change and shortfall never go below zero.
func ValidateCash(total, tendered decimal.Decimal) Result {
	r := Result{
		Method:    enum.PaymentMethodCash,
		Total:     total,
		Tendered:  tendered,
		Change:    decimal.Max(decimal.Zero, tendered.Sub(total)),
		Shortfall: decimal.Max(decimal.Zero, total.Sub(tendered)),
	}
	r.Valid = total.IsPositive() && tendered.GreaterThanOrEqual(total)

	switch {
	case !total.IsPositive():
		r.Message = "Keranjang masih kosong"
	case !r.Valid:
		r.Message = "Uang pembayaran kurang Rp " + r.Shortfall.StringFixed(0)
	case r.Change.IsZero():
		r.Message = "Uang pas"
	default:
		r.Message = "Kembalian Rp " + r.Change.StringFixed(0)
	}
	return r
}

// ValidateQris is valid iff total > 0. There is no tender and change is always zero.
func ValidateQris(total decimal.Decimal) Result {
	r := Result{
		Method:    enum.PaymentMethodQRIS,
		Total:     total,
		Tendered:  decimal.Zero,
		Change:    decimal.Zero,
		Shortfall: decimal.Zero,
		Valid:     total.IsPositive(),
	}
	if r.Valid {
		r.Message = "Scan QRIS untuk membayar Rp " + total.StringFixed(0)
	} else {
		r.Message = "Keranjang masih kosong"
	}
	return r
}

// Validate dispatches on method. tendered is ignored for QRIS.
func Validate(method string, total, tendered decimal.Decimal) (Result, error) {
	switch method {
	case enum.PaymentMethodCash:
		return ValidateCash(total, tendered), nil
	case enum.PaymentMethodQRIS:
		return ValidateQris(total), nil
	}
	return Result{}, ErrUnknownMethod
}

// ParseTendered parses a tendered amount sent as a string. Empty is an error
// for cash and zero otherwise.
func ParseTendered(method, raw string) (decimal.Decimal, error) {
	if raw == "" {
		if method == enum.PaymentMethodCash {
			return decimal.Zero, ErrTenderedRequired
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidTendered
	}
	return d, nil
}

var denominations = []int64{1000, 2000, 5000, 10000, 20000, 50000, 100000}

// QuickCash suggests tender amounts for a cash payment: the exact total,
// then the total rounded up to each banknote, ascending and de-duplicated.
func QuickCash(total decimal.Decimal) []decimal.Decimal {
	if !total.IsPositive() {
		return nil
	}
	out := []decimal.Decimal{total}
	seen := map[string]bool{total.String(): true}
	for _, d := range denominations {
		step := decimal.NewFromInt(d)
		rounded := total.Div(step).Ceil().Mul(step)
		if seen[rounded.String()] {
			continue
		}
		seen[rounded.String()] = true
		out = append(out, rounded)
	}
	slices.SortFunc(out, func(a, b decimal.Decimal) int { return a.Cmp(b) })
	return out
}
