package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Merchant identifies the stall inside a QRIS payload.
type Merchant struct {
	Name string
	City string
	ID   string
}

// DefaultMerchant is the stall's display identity.
var DefaultMerchant = Merchant{
	Name: "Nasi Daun Jeruk POS",
	City: "Jakarta",
	ID:   "NDJPOS001",
}

// QRIS is a display-only payment request. It is not a working interbank
// integration: the payload is shown as a QR code and the cashier confirms
// payment manually.
type QRIS struct {
	Payload       string          `json:"payload"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	QRType        string          `json:"qr_type"`
	SupportedApps []string        `json:"supported_apps"`
}

// NewQRIS builds the display payload for amount and reference.
func NewQRIS(amount decimal.Decimal, reference string, m Merchant) (QRIS, error) {
	payload, err := QRISPayload(amount, reference, m)
	if err != nil {
		return QRIS{}, err
	}
	return QRIS{
		Payload:       payload,
		Amount:        amount,
		Reference:     reference,
		QRType:        "QRIS",
		SupportedApps: []string{"GoPay", "DANA", "OVO", "ShopeePay", "LinkAja"},
	}, nil
}

// QRISPayload encodes a simplified EMV-style TLV string: each field is
// tag(2) + length(2, zero padded) + value, with the reference nested under
// tag 62/07.
func QRISPayload(amount decimal.Decimal, reference string, m Merchant) (string, error) {
	if !amount.IsPositive() {
		return "", ErrInvalidTotal
	}

	fields := []struct{ tag, value string }{
		{"00", "01"},   // payload format indicator
		{"01", "11"},   // static point of initiation
		{"52", "7000"}, // merchant category: restaurant
		{"53", "360"},  // IDR
		{"54", amount.StringFixed(2)},
		{"58", "ID"},
		{"59", m.Name},
		{"60", m.City},
		{"61", m.ID},
	}

	var b strings.Builder
	for _, f := range fields {
		if err := writeTLV(&b, f.tag, f.value); err != nil {
			return "", err
		}
	}

	var additional strings.Builder
	if err := writeTLV(&additional, "07", reference); err != nil {
		return "", err
	}
	if err := writeTLV(&b, "62", additional.String()); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeTLV(b *strings.Builder, tag, value string) error {
	if len(value) > 99 {
		return fmt.Errorf("qris tag %s: value longer than 99 bytes", tag)
	}
	fmt.Fprintf(b, "%s%02d%s", tag, len(value), value)
	return nil
}
