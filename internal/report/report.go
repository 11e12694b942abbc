// Package report derives sales statistics from ledger transactions. All
// functions are pure; callers choose the transaction window with a
// ledger.Filter.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Summary is the headline figure set for a window of transactions.
type Summary struct {
	TransactionCount int             `json:"transaction_count"`
	ItemsSold        int             `json:"items_sold"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue"`
	TotalDiscount    decimal.Decimal `json:"total_discount"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
	AverageOrder     decimal.Decimal `json:"average_order"`
}

// Summarize totals txs. The average is rounded to whole rupiah.
func Summarize(txs []ledger.Transaction) Summary {
	s := Summary{GrossRevenue: decimal.Zero, TotalDiscount: decimal.Zero, NetRevenue: decimal.Zero, AverageOrder: decimal.Zero}
	for _, tx := range txs {
		s.TransactionCount++
		s.ItemsSold += tx.Quantity()
		s.GrossRevenue = s.GrossRevenue.Add(tx.Subtotal)
		s.TotalDiscount = s.TotalDiscount.Add(tx.Discount)
		s.NetRevenue = s.NetRevenue.Add(tx.Total)
	}
	if s.TransactionCount > 0 {
		s.AverageOrder = s.NetRevenue.Div(decimal.NewFromInt(int64(s.TransactionCount))).Round(0)
	}
	return s
}

// DailyRow is one calendar day of sales.
type DailyRow struct {
	Date          string          `json:"date"`
	OrderCount    int             `json:"order_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
}

// DailySales groups txs by calendar day in loc, oldest day first.
func DailySales(txs []ledger.Transaction, loc *time.Location) []DailyRow {
	byDay := map[string]*DailyRow{}
	for _, tx := range txs {
		day := tx.Timestamp.In(loc).Format(dateLayout)
		row, ok := byDay[day]
		if !ok {
			row = &DailyRow{Date: day, TotalRevenue: decimal.Zero, TotalDiscount: decimal.Zero, NetRevenue: decimal.Zero}
			byDay[day] = row
		}
		row.OrderCount++
		row.TotalRevenue = row.TotalRevenue.Add(tx.Subtotal)
		row.TotalDiscount = row.TotalDiscount.Add(tx.Discount)
		row.NetRevenue = row.NetRevenue.Add(tx.Total)
	}

	rows := make([]DailyRow, 0, len(byDay))
	for _, row := range byDay {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b DailyRow) int { return cmp.Compare(a.Date, b.Date) })
	return rows
}

// PaymentRow is the share of one payment method.
type PaymentRow struct {
	PaymentMethod    string          `json:"payment_method"`
	Label            string          `json:"label"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Percentage       decimal.Decimal `json:"percentage"`
}

// PaymentSummary breaks txs down by payment method. Cash and QRIS are always
// present; percentages are by transaction count, one decimal place.
func PaymentSummary(txs []ledger.Transaction) []PaymentRow {
	rows := []PaymentRow{
		{PaymentMethod: enum.PaymentMethodCash},
		{PaymentMethod: enum.PaymentMethodQRIS},
	}
	index := map[string]int{enum.PaymentMethodCash: 0, enum.PaymentMethodQRIS: 1}
	for i := range rows {
		rows[i].TotalAmount = decimal.Zero
	}

	for _, tx := range txs {
		i, ok := index[tx.PaymentMethod]
		if !ok {
			i = len(rows)
			index[tx.PaymentMethod] = i
			rows = append(rows, PaymentRow{PaymentMethod: tx.PaymentMethod, TotalAmount: decimal.Zero})
		}
		rows[i].TransactionCount++
		rows[i].TotalAmount = rows[i].TotalAmount.Add(tx.Total)
	}

	total := decimal.NewFromInt(int64(len(txs)))
	for i := range rows {
		rows[i].Label = enum.PaymentMethodLabel(rows[i].PaymentMethod)
		rows[i].Percentage = decimal.Zero
		if len(txs) > 0 {
			rows[i].Percentage = decimal.NewFromInt(int64(rows[i].TransactionCount)).Mul(hundred).Div(total).Round(1)
		}
	}
	return rows
}

// ProductRow is the sales of one menu item, topping variants combined.
type ProductRow struct {
	ItemID       string          `json:"item_id"`
	Name         string          `json:"name"`
	QuantitySold int             `json:"quantity_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// ProductSales ranks items by quantity sold, then revenue, then name. Revenue
// is before discounts. A limit <= 0 returns every item.
func ProductSales(txs []ledger.Transaction, limit int) []ProductRow {
	byItem := map[string]*ProductRow{}
	var order []string
	for _, tx := range txs {
		for _, l := range tx.Items {
			key := l.ItemID
			if key == "" {
				key = l.Name
			}
			row, ok := byItem[key]
			if !ok {
				row = &ProductRow{ItemID: l.ItemID, Name: l.Name, TotalRevenue: decimal.Zero}
				byItem[key] = row
				order = append(order, key)
			}
			row.QuantitySold += l.Quantity
			row.TotalRevenue = row.TotalRevenue.Add(l.Subtotal())
		}
	}

	rows := make([]ProductRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, *byItem[key])
	}
	slices.SortStableFunc(rows, func(a, b ProductRow) int {
		if c := cmp.Compare(b.QuantitySold, a.QuantitySold); c != 0 {
			return c
		}
		if c := b.TotalRevenue.Cmp(a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// HourlyRow is sales within one hour of the day.
type HourlyRow struct {
	Hour         int             `json:"hour"`
	OrderCount   int             `json:"order_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// HourlySales buckets txs by hour of day in loc. Only hours with sales are
// returned, earliest first.
func HourlySales(txs []ledger.Transaction, loc *time.Location) []HourlyRow {
	var buckets [24]HourlyRow
	for _, tx := range txs {
		h := tx.Timestamp.In(loc).Hour()
		buckets[h].OrderCount++
		if buckets[h].OrderCount == 1 {
			buckets[h].TotalRevenue = decimal.Zero
		}
		buckets[h].TotalRevenue = buckets[h].TotalRevenue.Add(tx.Total)
	}

	var rows []HourlyRow
	for h, b := range buckets {
		if b.OrderCount == 0 {
			continue
		}
		b.Hour = h
		rows = append(rows, b)
	}
	if rows == nil {
		rows = []HourlyRow{}
	}
	return rows
}
