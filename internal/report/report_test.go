package report

import (
	"testing"
	"time"

	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var wib = time.FixedZone("WIB", 7*3600)

func nasi(qty int) cart.Line {
	return cart.Line{ItemID: menu.ItemNasiDaunJeruk, Name: "Nasi Daun Jeruk", UnitPrice: d(10000), Quantity: qty}
}

func jeruk(qty int) cart.Line {
	return cart.Line{ItemID: menu.ItemEsJeruk, Name: "Es Jeruk Peras", UnitPrice: d(5000), Quantity: qty}
}

func fixture() []ledger.Transaction {
	return []ledger.Transaction{
		{
			ID:            "TRX-3",
			Timestamp:     time.Date(2026, 3, 2, 12, 30, 0, 0, wib),
			Items:         []cart.Line{nasi(1), jeruk(1)},
			Subtotal:      d(15000),
			Discount:      d(2000),
			Total:         d(13000),
			PaymentMethod: enum.PaymentMethodQRIS,
		},
		{
			ID:            "TRX-2",
			Timestamp:     time.Date(2026, 3, 1, 12, 10, 0, 0, wib),
			Items:         []cart.Line{jeruk(3)},
			Subtotal:      d(15000),
			Discount:      decimal.Zero,
			Total:         d(15000),
			PaymentMethod: enum.PaymentMethodCash,
		},
		{
			ID:            "TRX-1",
			Timestamp:     time.Date(2026, 3, 1, 9, 0, 0, 0, wib),
			Items:         []cart.Line{nasi(2), jeruk(1)},
			Subtotal:      d(25000),
			Discount:      decimal.Zero,
			Total:         d(25000),
			PaymentMethod: enum.PaymentMethodCash,
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())
	if s.TransactionCount != 3 || s.ItemsSold != 8 {
		t.Errorf("unexpected counts %+v", s)
	}
	if !s.GrossRevenue.Equal(d(55000)) || !s.TotalDiscount.Equal(d(2000)) || !s.NetRevenue.Equal(d(53000)) {
		t.Errorf("unexpected revenue %+v", s)
	}
	if !s.AverageOrder.Equal(d(17667)) {
		t.Errorf("expected average 17667, got %s", s.AverageOrder)
	}

	empty := Summarize(nil)
	if empty.TransactionCount != 0 || !empty.AverageOrder.IsZero() {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

func TestDailySales(t *testing.T) {
	rows := DailySales(fixture(), wib)
	if len(rows) != 2 {
		t.Fatalf("expected 2 days, got %d", len(rows))
	}
	if rows[0].Date != "2026-03-01" || rows[0].OrderCount != 2 || !rows[0].NetRevenue.Equal(d(40000)) {
		t.Errorf("unexpected first day %+v", rows[0])
	}
	if rows[1].Date != "2026-03-02" || !rows[1].TotalDiscount.Equal(d(2000)) {
		t.Errorf("unexpected second day %+v", rows[1])
	}
}

func TestPaymentSummary(t *testing.T) {
	rows := PaymentSummary(fixture())
	if len(rows) != 2 {
		t.Fatalf("expected cash and qris rows, got %d", len(rows))
	}
	cash, qris := rows[0], rows[1]
	if cash.TransactionCount != 2 || !cash.TotalAmount.Equal(d(40000)) || cash.Label != "Tunai" {
		t.Errorf("unexpected cash row %+v", cash)
	}
	if qris.TransactionCount != 1 || !qris.Percentage.Equal(decimal.RequireFromString("33.3")) {
		t.Errorf("unexpected qris row %+v", qris)
	}

	empty := PaymentSummary(nil)
	if len(empty) != 2 || !empty[1].Percentage.IsZero() {
		t.Errorf("unexpected empty summary %+v", empty)
	}
}

func TestProductSales(t *testing.T) {
	rows := ProductSales(fixture(), 0)
	if len(rows) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rows))
	}
	if rows[0].ItemID != menu.ItemEsJeruk || rows[0].QuantitySold != 5 || !rows[0].TotalRevenue.Equal(d(25000)) {
		t.Errorf("unexpected top product %+v", rows[0])
	}
	if rows[1].ItemID != menu.ItemNasiDaunJeruk || rows[1].QuantitySold != 3 {
		t.Errorf("unexpected second product %+v", rows[1])
	}

	if got := ProductSales(fixture(), 1); len(got) != 1 {
		t.Errorf("limit not applied: %d rows", len(got))
	}
}

func TestHourlySales(t *testing.T) {
	rows := HourlySales(fixture(), wib)
	if len(rows) != 2 {
		t.Fatalf("expected 2 hours, got %+v", rows)
	}
	if rows[0].Hour != 9 || rows[0].OrderCount != 1 {
		t.Errorf("unexpected first hour %+v", rows[0])
	}
	if rows[1].Hour != 12 || rows[1].OrderCount != 2 || !rows[1].TotalRevenue.Equal(d(28000)) {
		t.Errorf("unexpected noon bucket %+v", rows[1])
	}
	if got := HourlySales(nil, wib); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
