package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/receipt"
	"github.com/sirupsen/logrus"
)

const maxImportBytes = 10 << 20

// LedgerService reads and edits the transaction ledger.
// Satisfied by *service.POS.
type LedgerService interface {
	Transactions(f ledger.Filter) []ledger.Transaction
	Transaction(id string) (ledger.Transaction, bool)
	DeleteTransaction(ctx context.Context, id string) (bool, []string, error)
	DeleteAllTransactions(ctx context.Context) (int, []string, error)
	ImportTransactions(ctx context.Context, txs []ledger.Transaction) (int, []string, error)
}

// ReceiptHeaderFunc returns the stall identity printed on receipts.
type ReceiptHeaderFunc func() receipt.Header

// TransactionHandler handles ledger endpoints.
type TransactionHandler struct {
	svc    LedgerService
	header ReceiptHeaderFunc
	loc    *time.Location
	now    func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler. Dates in query
// parameters and exports are interpreted in loc.
func NewTransactionHandler(svc LedgerService, header ReceiptHeaderFunc, loc *time.Location) *TransactionHandler {
	if header == nil {
		header = func() receipt.Header { return receipt.Header{} }
	}
	if loc == nil {
		loc = time.Local
	}
	return &TransactionHandler{svc: svc, header: header, loc: loc, now: time.Now}
}

// RegisterRoutes registers read endpoints. Expected to be mounted at /transactions.
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
}

// RegisterOwnerRoutes registers destructive endpoints. Expected to be mounted
// at /transactions behind RequireRole(OWNER).
func (h *TransactionHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Delete("/", h.DeleteAll)
	r.Post("/import", h.Import)
	r.Delete("/{id}", h.Delete)
}

type transactionListResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
}

type deleteResponse struct {
	Deleted  int      `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

type importResponse struct {
	Added    int      `json:"added"`
	Received int      `json:"received"`
	Warnings []string `json:"warnings,omitempty"`
}

func (h *TransactionHandler) filter(w http.ResponseWriter, r *http.Request) (ledger.Filter, bool) {
	from, to, err := parseDateRange(r, h.loc, h.now(), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return ledger.Filter{}, false
	}
	q := r.URL.Query()
	return ledger.Filter{
		From:          from,
		To:            to,
		PaymentMethod: q.Get("method"),
		Search:        q.Get("q"),
	}, true
}

// List returns transactions newest first, filtered by from, to, method and q.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	txs := h.svc.Transactions(f)
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionListResponse{Transactions: txs, Count: len(txs)})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.svc.Transaction(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Receipt renders a transaction as printable HTML (default) or thermal text.
func (h *TransactionHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.svc.Transaction(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	rr := receipt.Renderer{Header: h.header(), Location: h.loc}

	switch r.URL.Query().Get("format") {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := rr.HTML(w, tx); err != nil {
			logrus.WithError(err).WithField("transaction_id", tx.ID).Error("render receipt")
		}
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(rr.Text(tx)))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be html or text"})
	}
}

// Export downloads the filtered ledger as csv (default), json or xlsx.
func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
	case "json":
		contentType = "application/json"
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be csv, json or xlsx"})
		return
	}

	txs := h.svc.Transactions(f)
	now := h.now().In(h.loc)
	filename := fmt.Sprintf("transaksi-%s.%s", now.Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	var err error
	switch format {
	case "csv":
		err = ledger.WriteCSV(w, txs, h.loc)
	case "json":
		err = ledger.WriteJSON(w, txs, now)
	case "xlsx":
		err = ledger.WriteXLSX(w, txs, h.loc)
	}
	if err != nil {
		// Headers are already sent; the client sees a truncated file.
		logrus.WithError(err).WithField("format", format).Error("export transactions")
	}
}

// Delete removes one transaction and its pending sync entry.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, warnings, err := h.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete transaction", err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: 1, Warnings: warnings})
}

// DeleteAll empties the ledger. Requires ?confirm=true.
func (h *TransactionHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "confirm=true is required"})
		return
	}
	n, warnings, err := h.svc.DeleteAllTransactions(r.Context())
	if err != nil {
		writeError(w, "delete all transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n, Warnings: warnings})
}

// Import merges a JSON backup (envelope or bare array) into the ledger.
func (h *TransactionHandler) Import(w http.ResponseWriter, r *http.Request) {
	txs, err := ledger.ReadBackup(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "backup too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	added, warnings, err := h.svc.ImportTransactions(r.Context(), txs)
	if err != nil {
		writeError(w, "import transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Added: added, Received: len(txs), Warnings: warnings})
}
