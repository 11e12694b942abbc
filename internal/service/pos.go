package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/nasidaunjeruk/pos/internal/payment"
	"github.com/nasidaunjeruk/pos/internal/remotesync"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Errors returned by the POS service.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrBelowMinimum    = errors.New("order total below minimum")
	ErrAboveMaximum    = errors.New("order total above maximum")
	ErrPaymentRejected = errors.New("payment rejected")
)

// SyncQueue is the part of the remote syncer the service drives.
// Satisfied by *remotesync.Syncer.
type SyncQueue interface {
	Enqueue(ctx context.Context, tx ledger.Transaction) error
	Remove(ctx context.Context, id string) error
	Kick()
	Stats() remotesync.Stats
	Status(id string) (remotesync.Status, bool)
	FlushNow(ctx context.Context) (remotesync.FlushResult, error)
	TestConnection(ctx context.Context, endpoint string) error
}

// Publisher fans events out to connected displays. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(topic, eventType string, payload any)
}

// OrderLimits returns the minimum and maximum order total.
type OrderLimits func() (min, max decimal.Decimal)

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

// CartResult is the cart after a mutation. Warnings carry non-fatal
// persistence problems.
type CartResult struct {
	Cart     cart.Snapshot `json:"cart"`
	Warnings []string      `json:"warnings,omitempty"`
}

// CheckoutRequest is the validated input for a checkout.
type CheckoutRequest struct {
	PaymentMethod string
	Tendered      decimal.Decimal // cash only
}

// CheckoutResult is the committed transaction and the payment outcome.
type CheckoutResult struct {
	Transaction ledger.Transaction `json:"transaction"`
	Payment     payment.Result     `json:"payment"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// PaymentError is returned when checkout is blocked by the payment gate. It
// carries the full validation result so callers can show the shortfall.
type PaymentError struct {
	Result payment.Result
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPaymentRejected, e.Result.Message)
}

func (e *PaymentError) Unwrap() []error {
	return []error{ErrPaymentRejected, e.Result.Err()}
}

// POS is the single owner of the cart, the ledger and the sync queue. All
// mutations are serialised by one mutex: there is one logical writer, the
// cashier terminal, even when several HTTP requests arrive together.
type POS struct {
	mu      sync.Mutex
	catalog *menu.Catalog
	cart    *cart.Manager
	ledger  *ledger.Ledger
	sync    SyncQueue
	pub     Publisher
	limits  OrderLimits
	log     *logrus.Entry
}

// NewPOS wires the service. pub and limits may be nil.
func NewPOS(catalog *menu.Catalog, cm *cart.Manager, l *ledger.Ledger, sq SyncQueue, pub Publisher, limits OrderLimits) *POS {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &POS{
		catalog: catalog,
		cart:    cm,
		ledger:  l,
		sync:    sq,
		pub:     pub,
		limits:  limits,
		log:     logrus.WithField("component", "pos"),
	}
}

// Restore loads the persisted cart and ledger. Both are attempted; the
// first error is returned.
func (s *POS) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.cart.Restore(ctx), s.ledger.Load(ctx))
}

// Menu returns the catalog in display order.
func (s *POS) Menu() []menu.MenuItem {
	return s.catalog.List()
}

// Cart returns the current cart.
func (s *POS) Cart() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// AddItem adds an item to the cart.
func (s *POS) AddItem(ctx context.Context, itemID string, opts cart.AddOptions) (CartResult, error) {
	return s.mutateCart(ctx, func() error { return s.cart.AddItem(ctx, itemID, opts) })
}

// UpdateQuantity changes the quantity of the line at idx by delta.
func (s *POS) UpdateQuantity(ctx context.Context, idx, delta int) (CartResult, error) {
	return s.mutateCart(ctx, func() error { return s.cart.UpdateQuantity(ctx, idx, delta) })
}

// RemoveLine deletes the line at idx.
func (s *POS) RemoveLine(ctx context.Context, idx int) (CartResult, error) {
	return s.mutateCart(ctx, func() error { return s.cart.RemoveLine(ctx, idx) })
}

// ClearCart empties the cart.
func (s *POS) ClearCart(ctx context.Context) (CartResult, error) {
	return s.mutateCart(ctx, func() error { return s.cart.Clear(ctx) })
}

func (s *POS) mutateCart(ctx context.Context, fn func() error) (CartResult, error) {
	s.mu.Lock()
	err := fn()
	snap := s.cart.Snapshot()
	s.mu.Unlock()

	var res CartResult
	if err != nil && !apperr.IsPersistence(err) {
		return res, err
	}
	res.Cart = snap
	res.Warnings = s.warn(nil, err)
	s.pub.Publish(enum.TopicCart, enum.EventCartUpdated, snap)
	return res, nil
}

// ValidatePayment checks a payment against the current cart total without
// committing anything.
func (s *POS) ValidatePayment(method string, tendered decimal.Decimal) (payment.Result, error) {
	s.mu.Lock()
	total := s.cart.Totals().Total
	s.mu.Unlock()

	r, err := payment.Validate(method, total, tendered)
	if err != nil {
		return r, apperr.Validation("payment_method", err)
	}
	return r, nil
}

// Checkout validates the payment, commits the cart to the ledger, clears the
// cart and queues the transaction for sync. A rejected payment leaves the
// cart and ledger untouched. Persistence and sync failures are reported as
// warnings on an otherwise successful result.
func (s *POS) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	var res CheckoutResult

	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return res, apperr.Validation("cart", ErrEmptyCart)
	}

	totals := s.cart.Totals()
	if err := s.checkLimits(totals.Total); err != nil {
		s.mu.Unlock()
		return res, err
	}

	pr, err := payment.Validate(req.PaymentMethod, totals.Total, req.Tendered)
	if err != nil {
		s.mu.Unlock()
		return res, apperr.Validation("payment_method", err)
	}
	if !pr.Valid {
		s.mu.Unlock()
		return res, apperr.Validation("payment", &PaymentError{Result: pr})
	}

	tx, err := s.ledger.Commit(ctx, s.cart.Lines(), totals, ledger.PaymentInfo{
		Method:   pr.Method,
		Tendered: pr.Tendered,
		Change:   pr.Change,
	})
	if err != nil && !apperr.IsPersistence(err) {
		s.mu.Unlock()
		return res, err
	}
	warnings := s.warn(nil, err)
	warnings = s.warn(warnings, s.cart.Clear(ctx))
	snap := s.cart.Snapshot()

	// Queued under s.mu so a concurrent delete always sees the entry.
	if s.sync != nil {
		warnings = s.warn(warnings, s.sync.Enqueue(ctx, tx))
	}
	s.mu.Unlock()

	if s.sync != nil {
		s.sync.Kick()
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"total":          tx.Total.String(),
		"method":         tx.PaymentMethod,
	}).Info("transaction committed")

	s.pub.Publish(enum.TopicLedger, enum.EventTransactionCommitted, tx)
	s.pub.Publish(enum.TopicCart, enum.EventCartUpdated, snap)

	res.Transaction = tx
	res.Payment = pr
	res.Warnings = warnings
	return res, nil
}

func (s *POS) checkLimits(total decimal.Decimal) error {
	if s.limits == nil {
		return nil
	}
	lo, hi := s.limits()
	if lo.IsPositive() && total.LessThan(lo) {
		return apperr.Validation("total", fmt.Errorf("%w of %s", ErrBelowMinimum, lo.StringFixed(0)))
	}
	if hi.IsPositive() && total.GreaterThan(hi) {
		return apperr.Validation("total", fmt.Errorf("%w of %s", ErrAboveMaximum, hi.StringFixed(0)))
	}
	return nil
}

// Transactions returns the ledger entries matching f, newest first.
func (s *POS) Transactions(f ledger.Filter) []ledger.Transaction {
	return s.ledger.Query(f)
}

// Transaction returns one ledger entry.
func (s *POS) Transaction(id string) (ledger.Transaction, bool) {
	return s.ledger.Get(id)
}

// DeleteTransaction removes a transaction and its pending sync entry.
// Deleting an unknown id is a no-op that reports false.
func (s *POS) DeleteTransaction(ctx context.Context, id string) (bool, []string, error) {
	s.mu.Lock()
	removed, err := s.ledger.Delete(ctx, id)
	if err != nil && !apperr.IsPersistence(err) {
		s.mu.Unlock()
		return false, nil, err
	}
	warnings := s.warn(nil, err)
	if !removed {
		s.mu.Unlock()
		return false, warnings, nil
	}
	if s.sync != nil {
		warnings = s.warn(warnings, s.sync.Remove(ctx, id))
	}
	s.mu.Unlock()

	s.pub.Publish(enum.TopicLedger, enum.EventTransactionDeleted, map[string]string{"id": id})
	return true, warnings, nil
}

// DeleteAllTransactions empties the ledger. Pending sync entries are kept:
// they are already committed sales that the spreadsheet has not seen.
func (s *POS) DeleteAllTransactions(ctx context.Context) (int, []string, error) {
	s.mu.Lock()
	n, err := s.ledger.DeleteAll(ctx)
	s.mu.Unlock()
	if err != nil && !apperr.IsPersistence(err) {
		return 0, nil, err
	}
	s.pub.Publish(enum.TopicLedger, enum.EventTransactionDeleted, map[string]int{"count": n})
	return n, s.warn(nil, err), nil
}

// ImportTransactions merges a backup into the ledger by id.
func (s *POS) ImportTransactions(ctx context.Context, txs []ledger.Transaction) (int, []string, error) {
	s.mu.Lock()
	added, err := s.ledger.ImportMerge(ctx, txs)
	s.mu.Unlock()
	if err != nil && !apperr.IsPersistence(err) {
		return 0, nil, err
	}
	if added > 0 {
		s.pub.Publish(enum.TopicLedger, enum.EventLedgerImported, map[string]int{"added": added})
	}
	return added, s.warn(nil, err), nil
}

// SyncStats reports the sync queue state.
func (s *POS) SyncStats() remotesync.Stats {
	if s.sync == nil {
		return remotesync.Stats{}
	}
	return s.sync.Stats()
}

// SyncStatus reports the delivery state of one transaction.
func (s *POS) SyncStatus(id string) (remotesync.Status, bool) {
	if s.sync == nil {
		return remotesync.Status{}, false
	}
	return s.sync.Status(id)
}

// TestSyncConnection pings endpoint, or the configured endpoint when empty.
func (s *POS) TestSyncConnection(ctx context.Context, endpoint string) error {
	if s.sync == nil {
		return remotesync.ErrNoEndpoint
	}
	return s.sync.TestConnection(ctx, endpoint)
}

// FlushSync attempts every queued transaction now.
func (s *POS) FlushSync(ctx context.Context) (remotesync.FlushResult, error) {
	if s.sync == nil {
		return remotesync.FlushResult{}, remotesync.ErrNoEndpoint
	}
	return s.sync.FlushNow(ctx)
}

// warn logs err and appends it to warnings. A nil err is ignored.
func (s *POS) warn(warnings []string, err error) []string {
	if err == nil {
		return warnings
	}
	s.log.WithError(err).Warn("non-fatal error")
	s.pub.Publish(enum.TopicNotice, enum.EventNotice, map[string]string{"level": "warning", "message": err.Error()})
	return append(warnings, err.Error())
}
