package ledger

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	backupApp     = "Nasi Daun Jeruk POS"
	backupVersion = "1.0"
	timeLayout    = "2006-01-02 15:04:05"
	xlsxSheet     = "Transaksi"
)

// ErrInvalidBackup is returned when an import payload is neither a backup
// envelope nor a bare transaction array.
var ErrInvalidBackup = errors.New("invalid backup file")

var exportHeader = []string{
	"id", "timestamp", "items", "item_count", "subtotal", "discount",
	"total", "payment_method", "cash_paid", "change",
}

// Backup is the JSON export envelope.
type Backup struct {
	App              string          `json:"app"`
	Version          string          `json:"version"`
	ExportDate       time.Time       `json:"export_date"`
	TransactionCount int             `json:"transaction_count"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	Transactions     []Transaction   `json:"transactions"`
}

// NewBackup wraps txs in an envelope stamped with now.
func NewBackup(txs []Transaction, now time.Time) Backup {
	income := decimal.Zero
	for _, tx := range txs {
		income = income.Add(tx.Total)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return Backup{
		App:              backupApp,
		Version:          backupVersion,
		ExportDate:       now,
		TransactionCount: len(txs),
		TotalIncome:      income,
		Transactions:     txs,
	}
}

// localTime renders t in loc. A nil loc keeps t's own zone.
func localTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timeLayout)
}

func exportRow(tx Transaction, loc *time.Location) []string {
	cash := ""
	if tx.CashPaid.Valid {
		cash = tx.CashPaid.Decimal.String()
	}
	return []string{
		tx.ID,
		localTime(tx.Timestamp, loc),
		tx.ItemSummary(),
		strconv.Itoa(tx.ItemCount()),
		tx.Subtotal.String(),
		tx.Discount.String(),
		tx.Total.String(),
		tx.PaymentMethod,
		cash,
		tx.Change.String(),
	}
}

// WriteCSV writes one header row and one row per transaction, with
// timestamps in loc.
func WriteCSV(w io.Writer, txs []Transaction, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write(exportRow(tx, loc)); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes txs as an indented backup envelope.
func WriteJSON(w io.Writer, txs []Transaction, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewBackup(txs, now))
}

// ReadBackup accepts either a backup envelope or a bare transaction array.
func ReadBackup(r io.Reader) ([]Transaction, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrInvalidBackup
	}

	if raw[0] == '[' {
		var txs []Transaction
		if err := json.Unmarshal(raw, &txs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
		return txs, nil
	}

	var b struct {
		Transactions *[]Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if b.Transactions == nil {
		return nil, fmt.Errorf("%w: missing transactions", ErrInvalidBackup)
	}
	return *b.Transactions, nil
}

// WriteXLSX writes the same columns as WriteCSV into a single-sheet workbook,
// with amounts stored as numbers and a total row at the bottom.
func WriteXLSX(w io.Writer, txs []Transaction, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}

	income := decimal.Zero
	for i, tx := range txs {
		var cash any = ""
		if tx.CashPaid.Valid {
			cash = tx.CashPaid.Decimal.InexactFloat64()
		}
		row := []any{
			tx.ID,
			localTime(tx.Timestamp, loc),
			tx.ItemSummary(),
			tx.ItemCount(),
			tx.Subtotal.InexactFloat64(),
			tx.Discount.InexactFloat64(),
			tx.Total.InexactFloat64(),
			tx.PaymentMethod,
			cash,
			tx.Change.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		income = income.Add(tx.Total)
	}

	totalRow := len(txs) + 2
	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("F%d", totalRow), "TOTAL"); err != nil {
		return err
	}
	if err := f.SetCellValue(xlsxSheet, fmt.Sprintf("G%d", totalRow), income.InexactFloat64()); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}
