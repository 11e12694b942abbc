package payment

import (
	"errors"
	"strings"
	"testing"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestValidateCash(t *testing.T) {
	tests := []struct {
		name          string
		total         int64
		tendered      int64
		wantValid     bool
		wantChange    int64
		wantShortfall int64
		wantErr       error
	}{
		{"exact", 25000, 25000, true, 0, 0, nil},
		{"with change", 25000, 30000, true, 5000, 0, nil},
		{"short", 25000, 20000, false, 0, 5000, ErrInsufficientCash},
		{"zero total", 0, 10000, false, 10000, 0, ErrInvalidTotal},
		{"zero both", 0, 0, false, 0, 0, ErrInvalidTotal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := ValidateCash(d(tc.total), d(tc.tendered))
			if r.Valid != tc.wantValid {
				t.Errorf("valid: expected %v, got %v", tc.wantValid, r.Valid)
			}
			if !r.Change.Equal(d(tc.wantChange)) {
				t.Errorf("change: expected %d, got %s", tc.wantChange, r.Change)
			}
			if !r.Shortfall.Equal(d(tc.wantShortfall)) {
				t.Errorf("shortfall: expected %d, got %s", tc.wantShortfall, r.Shortfall)
			}
			if err := r.Err(); !errors.Is(err, tc.wantErr) {
				t.Errorf("err: expected %v, got %v", tc.wantErr, err)
			}
			if r.Message == "" {
				t.Error("expected a user-facing message")
			}
		})
	}
}

func TestValidateQris(t *testing.T) {
	ok := ValidateQris(d(15000))
	if !ok.Valid || !ok.Change.IsZero() || ok.Method != enum.PaymentMethodQRIS {
		t.Errorf("unexpected result %+v", ok)
	}
	empty := ValidateQris(decimal.Zero)
	if empty.Valid || !errors.Is(empty.Err(), ErrInvalidTotal) {
		t.Errorf("expected invalid for zero total, got %+v", empty)
	}
}

func TestValidateDispatch(t *testing.T) {
	r, err := Validate(enum.PaymentMethodQRIS, d(5000), d(999999))
	if err != nil || !r.Change.IsZero() {
		t.Errorf("qris must ignore tender: %+v %v", r, err)
	}
	if _, err := Validate("bank", d(5000), d(5000)); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestParseTendered(t *testing.T) {
	if _, err := ParseTendered(enum.PaymentMethodCash, ""); !errors.Is(err, ErrTenderedRequired) {
		t.Errorf("expected ErrTenderedRequired, got %v", err)
	}
	if v, err := ParseTendered(enum.PaymentMethodQRIS, ""); err != nil || !v.IsZero() {
		t.Errorf("qris without tender should be zero, got %s %v", v, err)
	}
	if _, err := ParseTendered(enum.PaymentMethodCash, "abc"); !errors.Is(err, ErrInvalidTendered) {
		t.Errorf("expected ErrInvalidTendered, got %v", err)
	}
	if _, err := ParseTendered(enum.PaymentMethodCash, "-5"); !errors.Is(err, ErrInvalidTendered) {
		t.Errorf("expected negative rejected, got %v", err)
	}
	if v, _ := ParseTendered(enum.PaymentMethodCash, "30000"); !v.Equal(d(30000)) {
		t.Errorf("expected 30000, got %s", v)
	}
}

func TestQuickCash(t *testing.T) {
	got := QuickCash(d(23000))
	want := []int64{23000, 24000, 25000, 30000, 40000, 50000, 100000}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if !got[i].Equal(d(want[i])) {
			t.Errorf("index %d: expected %d, got %s", i, want[i], got[i])
		}
	}
	if QuickCash(decimal.Zero) != nil {
		t.Error("expected nil for zero total")
	}
}

func TestQRISPayload(t *testing.T) {
	payload, err := QRISPayload(d(25000), "TRX-1", DefaultMerchant)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !strings.HasPrefix(payload, "000201010211") {
		t.Errorf("unexpected prefix %q", payload)
	}
	if !strings.Contains(payload, "540825000.00") {
		t.Errorf("expected amount field, got %q", payload)
	}
	if !strings.HasSuffix(payload, "62090705TRX-1") {
		t.Errorf("expected nested reference, got %q", payload)
	}

	if _, err := QRISPayload(decimal.Zero, "x", DefaultMerchant); !errors.Is(err, ErrInvalidTotal) {
		t.Errorf("expected ErrInvalidTotal, got %v", err)
	}
	if _, err := QRISPayload(d(1), strings.Repeat("x", 100), DefaultMerchant); err == nil {
		t.Error("expected error for oversize reference")
	}

	q, err := NewQRIS(d(1000), "R", DefaultMerchant)
	if err != nil || q.QRType != "QRIS" || len(q.SupportedApps) == 0 {
		t.Errorf("unexpected qris %+v %v", q, err)
	}
}
