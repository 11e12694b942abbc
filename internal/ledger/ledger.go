package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/shopspring/decimal"
)

const maxIDAttempts = 3

// Errors returned by the ledger.
var (
	ErrEmptyTransaction = errors.New("transaction has no items")
	ErrIDExhausted      = errors.New("could not allocate a unique transaction id")
)

type persistedLedger struct {
	Transactions []Transaction `json:"transactions"`
}

// Ledger is the durable, newest-first list of completed transactions.
// The in-memory list is authoritative for the session: when a save fails the
// change is kept and a *apperr.PersistenceError is returned.
type Ledger struct {
	mu    sync.RWMutex
	store storage.Store
	txs   []Transaction

	now    func() time.Time
	suffix func() string
}

// New creates an empty ledger backed by store.
func New(store storage.Store) *Ledger {
	return &Ledger{
		store:  store,
		now:    time.Now,
		suffix: randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
}

// Load replaces the in-memory list with the stored one. A missing ledger is empty.
func (l *Ledger) Load(ctx context.Context) error {
	var pl persistedLedger
	err := l.store.Load(ctx, storage.KeyLedger, &pl)

	l.mu.Lock()
	defer l.mu.Unlock()
	if errors.Is(err, storage.ErrNotFound) {
		l.txs = nil
		return nil
	}
	if err != nil {
		return apperr.Persistence("load", storage.KeyLedger, err)
	}
	l.txs = pl.Transactions
	sortNewestFirst(l.txs)
	return nil
}

// Commit snapshots lines and totals into a new transaction, prepends it and
// persists the ledger. Lines are deep-copied so later cart mutations cannot
// change history. The returned transaction is valid even when the error is a
// persistence error.
func (l *Ledger) Commit(ctx context.Context, lines []cart.Line, totals cart.Totals, p PaymentInfo) (Transaction, error) {
	if len(lines) == 0 {
		return Transaction{}, apperr.Validation("items", ErrEmptyTransaction)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now()
	id, err := l.nextID(ts)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:            id,
		Timestamp:     ts,
		Items:         cart.CloneLines(lines),
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		DiscountLabel: totals.DiscountLabel,
		Total:         totals.Total,
		PaymentMethod: p.Method,
		Change:        decimal.Zero,
		Status:        enum.TransactionStatusCompleted,
	}
	if p.Method == enum.PaymentMethodCash {
		tx.CashPaid = decimal.NewNullDecimal(p.Tendered)
		tx.Change = p.Change
	}

	l.txs = append([]Transaction{tx}, l.txs...)
	return tx.Clone(), l.persistLocked(ctx)
}

func (l *Ledger) nextID(ts time.Time) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := fmt.Sprintf("TRX-%d-%s", ts.UnixMilli(), l.suffix())
		if l.indexLocked(id) < 0 {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Get returns the transaction with id.
func (l *Ledger) Get(id string) (Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return Transaction{}, false
	}
	return l.txs[idx].Clone(), true
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}

// All returns every transaction, newest first.
func (l *Ledger) All() []Transaction {
	return l.Query(Filter{})
}

// View lazily yields transactions matching f, newest first. It iterates over
// the list as it was when View was called.
func (l *Ledger) View(f Filter) iter.Seq[Transaction] {
	l.mu.RLock()
	snapshot := slices.Clone(l.txs)
	l.mu.RUnlock()

	return func(yield func(Transaction) bool) {
		for _, tx := range snapshot {
			if !f.Match(tx) {
				continue
			}
			if !yield(tx.Clone()) {
				return
			}
		}
	}
}

// Query collects View(f).
func (l *Ledger) Query(f Filter) []Transaction {
	out := slices.Collect(l.View(f))
	if out == nil {
		out = []Transaction{}
	}
	return out
}

// Delete removes the transaction with id. A missing id is a no-op and
// reports false.
func (l *Ledger) Delete(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	l.txs = slices.Delete(l.txs, idx, idx+1)
	return true, l.persistLocked(ctx)
}

// DeleteAll empties the ledger and returns how many transactions were removed.
func (l *Ledger) DeleteAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.txs)
	l.txs = nil
	return n, l.persistLocked(ctx)
}

// ImportMerge adds transactions whose id is not already present, keeps the
// list newest first and reports how many were added. Importing the same set
// twice adds nothing the second time.
func (l *Ledger) ImportMerge(ctx context.Context, txs []Transaction) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.txs)+len(txs))
	for _, tx := range l.txs {
		seen[tx.ID] = true
	}

	added := 0
	for _, tx := range txs {
		if tx.ID == "" || seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		if tx.Status == "" {
			tx.Status = enum.TransactionStatusCompleted
		}
		l.txs = append(l.txs, tx.Clone())
		added++
	}
	if added == 0 {
		return 0, nil
	}
	sortNewestFirst(l.txs)
	return added, l.persistLocked(ctx)
}

func (l *Ledger) indexLocked(id string) int {
	return slices.IndexFunc(l.txs, func(tx Transaction) bool { return tx.ID == id })
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	txs := l.txs
	if txs == nil {
		txs = []Transaction{}
	}
	return apperr.Persistence("save", storage.KeyLedger, l.store.Save(ctx, storage.KeyLedger, persistedLedger{Transactions: txs}))
}

func sortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
