package receipt

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sampleTx() ledger.Transaction {
	return ledger.Transaction{
		ID:        "TRX-1772359200000-AB12",
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []cart.Line{
			{
				ItemID:    menu.ItemNasiDaunJeruk,
				Name:      "Nasi Daun Jeruk",
				UnitPrice: d(10000),
				Quantity:  2,
				Topping:   &menu.Topping{Key: "ayam", Name: "Ayam Suwir"},
			},
			{ItemID: menu.ItemEsJeruk, Name: "Es Jeruk Peras", UnitPrice: d(5000), Quantity: 1},
		},
		Subtotal:      d(25000),
		Discount:      d(2000),
		DiscountLabel: "Paket Hemat",
		Total:         d(23000),
		PaymentMethod: enum.PaymentMethodCash,
		CashPaid:      decimal.NewNullDecimal(d(30000)),
		Change:        d(7000),
		Status:        enum.TransactionStatusCompleted,
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{d(0), "Rp 0"},
		{d(500), "Rp 500"},
		{d(25000), "Rp 25.000"},
		{d(1250000), "Rp 1.250.000"},
		{d(-2000), "-Rp 2.000"},
		{decimal.RequireFromString("999.6"), "Rp 1.000"},
	}
	for _, tc := range tests {
		if got := FormatRupiah(tc.in); got != tc.want {
			t.Errorf("FormatRupiah(%s): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestHTML(t *testing.T) {
	r := Renderer{
		Header:   Header{StoreName: "Nasi Daun Jeruk <Bu Sri>", Address: "Jl. Melati 1"},
		Location: time.UTC,
	}

	var buf bytes.Buffer
	if err := r.HTML(&buf, sampleTx()); err != nil {
		t.Fatalf("html: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"size: 80mm auto",
		"TRX-1772359200000-AB12",
		"01/03/2026 10:00",
		"2x Nasi Daun Jeruk",
		"Topping: Ayam Suwir",
		"Rp 20.000",
		"Paket Hemat",
		"-Rp 2.000",
		"Rp 23.000",
		"Kembali",
		"Rp 7.000",
		"Jl. Melati 1",
		DefaultFooter,
		"&lt;Bu Sri&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestHTMLQrisOmitsCash(t *testing.T) {
	tx := sampleTx()
	tx.PaymentMethod = enum.PaymentMethodQRIS
	tx.CashPaid = decimal.NullDecimal{}
	tx.Change = decimal.Zero
	tx.Discount = decimal.Zero

	var buf bytes.Buffer
	if err := (Renderer{}).HTML(&buf, tx); err != nil {
		t.Fatalf("html: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Kembali") {
		t.Error("qris receipt must not show change")
	}
	if strings.Contains(out, "Paket Hemat") {
		t.Error("zero discount must not be shown")
	}
	if !strings.Contains(out, "QRIS") {
		t.Error("expected payment method label")
	}
}

func TestText(t *testing.T) {
	r := Renderer{Location: time.UTC}
	tx := sampleTx()
	tx.Items[1].Name = "Es Jeruk Peras Dengan Nama Yang Sangat Panjang Sekali"

	out := r.Text(tx)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n > TextWidth {
			t.Errorf("line %d is %d wide: %q", i, n, l)
		}
	}

	if !strings.Contains(lines[0], "NASI DAUN JERUK") {
		t.Errorf("unexpected title %q", lines[0])
	}
	if !strings.Contains(out, "2x Nasi Daun Jeruk (Ayam Suwir)") {
		t.Errorf("missing first line item:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimRight(lines[len(lines)-1], " "), DefaultFooter) {
		t.Errorf("expected footer last, got %q", lines[len(lines)-1])
	}

	var total string
	for _, l := range lines {
		if strings.HasPrefix(l, "TOTAL") {
			total = l
		}
	}
	if len(total) != TextWidth || !strings.HasSuffix(total, "Rp 23.000") {
		t.Errorf("total line not right-aligned: %q", total)
	}
}

func TestColumns(t *testing.T) {
	got := columns(strings.Repeat("x", 40), "Rp 1.000")
	if utf8.RuneCountInString(got) != TextWidth {
		t.Errorf("expected %d wide, got %q", TextWidth, got)
	}
	if !strings.HasSuffix(got, " Rp 1.000") {
		t.Errorf("right column lost: %q", got)
	}
}
