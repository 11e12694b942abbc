// Package receipt renders committed transactions for the 80mm thermal
// printer: an HTML document for the browser print dialog and a 32-column
// plain text layout for ESC/POS style printers.
package receipt

import (
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TextWidth is the character width of an 80mm thermal roll.
const TextWidth = 32

const (
	DefaultStoreName = "Nasi Daun Jeruk"
	DefaultFooter    = "Terima kasih telah berbelanja!"
	dateLayout       = "02/01/2006 15:04"
)

var printer = message.NewPrinter(language.Indonesian)

// FormatRupiah formats an amount as "Rp 25.000". Fractions are rounded away.
func FormatRupiah(amount decimal.Decimal) string {
	v := amount.Round(0).IntPart()
	if v < 0 {
		return printer.Sprintf("-Rp %d", -v)
	}
	return printer.Sprintf("Rp %d", v)
}

// Header is the stall identity printed at the top and bottom of a receipt.
type Header struct {
	StoreName string
	Address   string
	Phone     string
	Footer    string
}

// Renderer formats transactions. The zero value prints with defaults in the
// local time zone.
type Renderer struct {
	Header   Header
	Location *time.Location
}

func (r Renderer) header() Header {
	h := r.Header
	if h.StoreName == "" {
		h.StoreName = DefaultStoreName
	}
	if h.Footer == "" {
		h.Footer = DefaultFooter
	}
	return h
}

func (r Renderer) timestamp(tx ledger.Transaction) string {
	ts := tx.Timestamp
	if r.Location != nil {
		ts = ts.In(r.Location)
	}
	return ts.Format(dateLayout)
}

type htmlLine struct {
	Quantity int
	Name     string
	Topping  string
	Amount   string
}

type htmlData struct {
	Header        Header
	ID            string
	Date          string
	Lines         []htmlLine
	Subtotal      string
	Discount      string
	DiscountLabel string
	Total         string
	Method        string
	CashPaid      string
	Change        string
}

var htmlTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>Struk {{.ID}}</title>
<style>
@page { margin: 0; size: 80mm auto; }
body { font-family: monospace; margin: 0; padding: 10px; width: 80mm; font-size: 12px; }
.header { text-align: center; padding-bottom: 8px; border-bottom: 1px dashed #000; }
.header h2 { margin: 4px 0; font-size: 16px; }
.item, .row { display: flex; justify-content: space-between; margin: 4px 0; }
.topping { margin-left: 20px; font-size: 10px; }
.divider { border-top: 1px dashed #000; margin: 8px 0; }
.total { font-weight: bold; font-size: 14px; border-top: 2px solid #000; padding-top: 6px; }
.footer { text-align: center; margin-top: 12px; }
</style>
</head>
<body>
<div class="header">
<h2>{{.Header.StoreName}}</h2>
{{- if .Header.Address}}
<div>{{.Header.Address}}</div>
{{- end}}
{{- if .Header.Phone}}
<div>{{.Header.Phone}}</div>
{{- end}}
<div>{{.Date}}</div>
<div>{{.ID}}</div>
</div>
{{- range .Lines}}
<div class="item"><span>{{.Quantity}}x {{.Name}}</span><span>{{.Amount}}</span></div>
{{- if .Topping}}
<div class="topping">Topping: {{.Topping}}</div>
{{- end}}
{{- end}}
<div class="divider"></div>
<div class="row"><span>Subtotal</span><span>{{.Subtotal}}</span></div>
{{- if .Discount}}
<div class="row"><span>{{.DiscountLabel}}</span><span>-{{.Discount}}</span></div>
{{- end}}
<div class="row total"><span>TOTAL</span><span>{{.Total}}</span></div>
<div class="row"><span>Pembayaran</span><span>{{.Method}}</span></div>
{{- if .CashPaid}}
<div class="row"><span>Tunai</span><span>{{.CashPaid}}</span></div>
<div class="row"><span>Kembali</span><span>{{.Change}}</span></div>
{{- end}}
<div class="footer">{{.Header.Footer}}</div>
</body>
</html>
`))

// HTML writes a printable 80mm document for tx.
func (r Renderer) HTML(w io.Writer, tx ledger.Transaction) error {
	data := htmlData{
		Header:   r.header(),
		ID:       tx.ID,
		Date:     r.timestamp(tx),
		Subtotal: FormatRupiah(tx.Subtotal),
		Total:    FormatRupiah(tx.Total),
		Method:   enum.PaymentMethodLabel(tx.PaymentMethod),
	}
	for _, l := range tx.Items {
		hl := htmlLine{Quantity: l.Quantity, Name: l.Name, Amount: FormatRupiah(l.Subtotal())}
		if l.Topping != nil {
			hl.Topping = l.Topping.Name
		}
		data.Lines = append(data.Lines, hl)
	}
	if tx.Discount.IsPositive() {
		data.Discount = FormatRupiah(tx.Discount)
		data.DiscountLabel = discountLabel(tx)
	}
	if tx.CashPaid.Valid {
		data.CashPaid = FormatRupiah(tx.CashPaid.Decimal)
		data.Change = FormatRupiah(tx.Change)
	}
	return htmlTemplate.Execute(w, data)
}

// Text renders tx as fixed-width lines no wider than TextWidth.
func (r Renderer) Text(tx ledger.Transaction) string {
	h := r.header()
	rule := strings.Repeat("-", TextWidth)

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(center(strings.ToUpper(h.StoreName)))
	if h.Address != "" {
		line(center(h.Address))
	}
	if h.Phone != "" {
		line(center(h.Phone))
	}
	line(rule)
	line(truncate(tx.ID, TextWidth))
	line(r.timestamp(tx))
	line(rule)

	for _, l := range tx.Items {
		line(truncate(strconv.Itoa(l.Quantity)+"x "+l.DisplayName(), TextWidth))
		line(columns("", FormatRupiah(l.Subtotal())))
	}

	line(rule)
	line(columns("Subtotal", FormatRupiah(tx.Subtotal)))
	if tx.Discount.IsPositive() {
		line(columns(discountLabel(tx), "-"+FormatRupiah(tx.Discount)))
	}
	line(columns("TOTAL", FormatRupiah(tx.Total)))
	line(columns("Bayar", enum.PaymentMethodLabel(tx.PaymentMethod)))
	if tx.CashPaid.Valid {
		line(columns("Tunai", FormatRupiah(tx.CashPaid.Decimal)))
		line(columns("Kembali", FormatRupiah(tx.Change)))
	}
	line(rule)
	line(center(h.Footer))
	return b.String()
}

func discountLabel(tx ledger.Transaction) string {
	if tx.DiscountLabel != "" {
		return tx.DiscountLabel
	}
	return "Diskon"
}

func center(s string) string {
	s = truncate(s, TextWidth)
	pad := (TextWidth - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// columns left-aligns left and right-aligns right on one line. When both do
// not fit, left is truncated.
func columns(left, right string) string {
	rw := utf8.RuneCountInString(right)
	left = truncate(left, TextWidth-rw-1)
	gap := TextWidth - utf8.RuneCountInString(left) - rw
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width])
}
