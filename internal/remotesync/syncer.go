// Package remotesync delivers committed transactions to a remote endpoint
// (a spreadsheet web app) through a persisted retry queue. Delivery is
// at-least-once; entries that keep failing are dropped after MaxRetries.
package remotesync

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/sirupsen/logrus"
)

// Errors returned by Flush.
var (
	ErrFlushInProgress = errors.New("sync flush already in progress")
	ErrNoEndpoint      = errors.New("sync endpoint not configured")
	ErrInvalidEndpoint = errors.New("sync endpoint must be an http(s) url")
)

// Entry is a queued transaction awaiting delivery.
type Entry struct {
	Transaction ledger.Transaction `json:"transaction"`
	RetryCount  int                `json:"retry_count"`
	NextAttempt time.Time          `json:"next_attempt"`
	LastError   string             `json:"last_error,omitempty"`
	EnqueuedAt  time.Time          `json:"enqueued_at"`
}

// Status is the delivery state of one transaction: pending while queued,
// then synced or failed once it leaves the queue.
type Status struct {
	TransactionID string    `json:"transaction_id"`
	State         string    `json:"state"`
	RetryCount    int       `json:"retry_count"`
	LastError     string    `json:"last_error,omitempty"`
	NextAttempt   time.Time `json:"next_attempt,omitzero"`
	SyncedAt      time.Time `json:"synced_at,omitzero"`
}

type persistedQueue struct {
	Entries  []Entry           `json:"entries"`
	Outcomes map[string]Status `json:"outcomes,omitempty"`
}

// EndpointFunc returns the current endpoint URL. It is called once per flush
// so settings changes apply without a restart.
type EndpointFunc func() string

// Options tune the syncer. Zero values take the defaults below.
type Options struct {
	Interval       time.Duration // 30s
	MaxRetries     int           // 5
	InitialBackoff time.Duration // 30s
	MaxBackoff     time.Duration // 10m
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 30 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Minute
	}
	return o
}

// FlushResult summarises one flush pass.
type FlushResult struct {
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Dropped  int `json:"dropped"`
	Deferred int `json:"deferred"`
	Pending  int `json:"pending"`
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending   int       `json:"pending"`
	Synced    int       `json:"synced"`
	Dropped   int       `json:"dropped"`
	Syncing   bool      `json:"syncing"`
	Endpoint  bool      `json:"endpoint_configured"`
	LastFlush time.Time `json:"last_flush,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Syncer owns the retry queue.
type Syncer struct {
	mu        sync.Mutex
	queue     []Entry
	outcomes  map[string]Status
	synced    int
	dropped   int
	lastFlush time.Time
	lastErr   string

	busy atomic.Bool
	kick chan struct{}

	store    storage.Store
	sender   Sender
	endpoint EndpointFunc
	opts     Options
	now      func() time.Time
	log      *logrus.Entry

	// OnChange, when set, receives the stats after every queue change.
	OnChange func(Stats)
}

// New creates a syncer with an empty queue. Call Load to restore a persisted one.
func New(store storage.Store, sender Sender, endpoint EndpointFunc, opts Options) *Syncer {
	return &Syncer{
		kick:     make(chan struct{}, 1),
		outcomes: make(map[string]Status),
		store:    store,
		sender:   sender,
		endpoint: endpoint,
		opts:     opts.withDefaults(),
		now:      time.Now,
		log:      logrus.WithField("component", "sync"),
	}
}

// Load restores the persisted queue. A missing queue is empty.
func (s *Syncer) Load(ctx context.Context) error {
	var pq persistedQueue
	err := s.store.Load(ctx, storage.KeySyncQueue, &pq)

	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, storage.ErrNotFound) {
		s.queue = nil
		s.outcomes = make(map[string]Status)
		return nil
	}
	if err != nil {
		return apperr.Persistence("load", storage.KeySyncQueue, err)
	}
	s.queue = pq.Entries
	s.outcomes = pq.Outcomes
	if s.outcomes == nil {
		s.outcomes = make(map[string]Status)
	}
	return nil
}

// Enqueue queues tx for delivery. A transaction already queued is ignored.
func (s *Syncer) Enqueue(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	if s.indexLocked(tx.ID) >= 0 {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	s.queue = append(s.queue, Entry{Transaction: tx.Clone(), NextAttempt: now, EnqueuedAt: now})
	delete(s.outcomes, tx.ID)
	err := s.persistLocked(ctx)
	stats := s.statsLocked()
	s.mu.Unlock()

	s.notify(stats)
	return err
}

// Remove forgets a transaction, e.g. after it was deleted from the ledger.
func (s *Syncer) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	_, known := s.outcomes[id]
	if idx < 0 && !known {
		s.mu.Unlock()
		return nil
	}
	if idx >= 0 {
		s.queue = slices.Delete(s.queue, idx, idx+1)
	}
	delete(s.outcomes, id)
	err := s.persistLocked(ctx)
	stats := s.statsLocked()
	s.mu.Unlock()

	s.notify(stats)
	return err
}

// Pending returns a copy of the queue.
func (s *Syncer) Pending() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.queue))
	for i, e := range s.queue {
		e.Transaction = e.Transaction.Clone()
		out[i] = e
	}
	return out
}

// Status reports where transaction id is in delivery. ok is false for ids
// the syncer has never seen.
func (s *Syncer) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		e := s.queue[idx]
		return Status{
			TransactionID: id,
			State:         enum.SyncStatePending,
			RetryCount:    e.RetryCount,
			LastError:     e.LastError,
			NextAttempt:   e.NextAttempt,
		}, true
	}
	st, ok := s.outcomes[id]
	return st, ok
}

// Stats reports the queue state.
func (s *Syncer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Flush attempts every entry whose backoff has elapsed.
func (s *Syncer) Flush(ctx context.Context) (FlushResult, error) {
	return s.flush(ctx, false)
}

// FlushNow attempts every entry regardless of backoff.
func (s *Syncer) FlushNow(ctx context.Context) (FlushResult, error) {
	return s.flush(ctx, true)
}

func (s *Syncer) flush(ctx context.Context, force bool) (FlushResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return FlushResult{}, ErrFlushInProgress
	}
	defer s.busy.Store(false)

	var res FlushResult
	endpoint := ""
	if s.endpoint != nil {
		endpoint = s.endpoint()
	}

	s.mu.Lock()
	if endpoint == "" {
		res.Pending = len(s.queue)
		s.mu.Unlock()
		return res, ErrNoEndpoint
	}
	now := s.now()
	var due []Entry
	for _, e := range s.queue {
		if force || !e.NextAttempt.After(now) {
			due = append(due, e)
		} else {
			res.Deferred++
		}
	}
	s.mu.Unlock()

	type outcome struct {
		id  string
		err error
	}
	outcomes := make([]outcome, 0, len(due))
	for _, e := range due {
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, outcome{id: e.Transaction.ID, err: s.sender.Send(ctx, endpoint, e.Transaction)})
	}

	s.mu.Lock()
	for _, o := range outcomes {
		idx := s.indexLocked(o.id)
		if idx < 0 {
			// removed while sending
			continue
		}
		if o.err == nil {
			s.outcomes[o.id] = Status{
				TransactionID: o.id,
				State:         enum.SyncStateSynced,
				RetryCount:    s.queue[idx].RetryCount,
				SyncedAt:      s.now(),
			}
			s.queue = slices.Delete(s.queue, idx, idx+1)
			s.synced++
			res.Sent++
			continue
		}

		e := &s.queue[idx]
		e.RetryCount++
		e.LastError = o.err.Error()
		s.lastErr = e.LastError
		if e.RetryCount >= s.opts.MaxRetries {
			s.log.WithFields(logrus.Fields{
				"transaction_id": o.id,
				"retries":        e.RetryCount,
			}).WithError(o.err).Warn("dropping transaction after max retries")
			s.outcomes[o.id] = Status{
				TransactionID: o.id,
				State:         enum.SyncStateFailed,
				RetryCount:    e.RetryCount,
				LastError:     e.LastError,
			}
			s.queue = slices.Delete(s.queue, idx, idx+1)
			s.dropped++
			res.Dropped++
			continue
		}
		e.NextAttempt = s.now().Add(s.delay(e.RetryCount))
		res.Failed++
		s.log.WithField("transaction_id", o.id).WithError(o.err).Debug("sync attempt failed")
	}
	if res.Failed == 0 && res.Dropped == 0 && res.Sent > 0 {
		s.lastErr = ""
	}
	s.lastFlush = s.now()
	res.Pending = len(s.queue)

	var err error
	if len(outcomes) > 0 {
		err = s.persistLocked(ctx)
	}
	stats := s.statsLocked()
	s.mu.Unlock()

	if len(outcomes) > 0 {
		s.notify(stats)
	}
	return res, err
}

// delay is the backoff before attempt number retry+1: InitialBackoff,
// doubling per retry, capped at MaxBackoff.
func (s *Syncer) delay(retry int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialBackoff
	b.MaxInterval = s.opts.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.InitialInterval
	for i := 0; i < retry; i++ {
		d = b.NextBackOff()
	}
	return d
}

// TestConnection checks that endpoint answers as a live sync target. An
// empty endpoint tests the configured one.
func (s *Syncer) TestConnection(ctx context.Context, endpoint string) error {
	if endpoint == "" && s.endpoint != nil {
		endpoint = s.endpoint()
	}
	if endpoint == "" {
		return ErrNoEndpoint
	}
	if u, err := url.Parse(endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("url", ErrInvalidEndpoint)
	}
	err := s.sender.Ping(ctx, endpoint)
	s.log.WithField("alive", err == nil).Info("sync endpoint tested")
	return err
}

// Kick requests an immediate flush from Run. It never blocks.
func (s *Syncer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run flushes on every interval tick and on Kick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.opts.Interval).Info("background sync started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("background sync stopped")
			return
		case <-ticker.C:
		case <-s.kick:
		}

		res, err := s.Flush(ctx)
		switch {
		case errors.Is(err, ErrNoEndpoint), errors.Is(err, ErrFlushInProgress):
		case err != nil:
			s.log.WithError(err).Warn("sync flush")
		case res.Sent+res.Failed+res.Dropped > 0:
			s.log.WithFields(logrus.Fields{
				"sent":    res.Sent,
				"failed":  res.Failed,
				"dropped": res.Dropped,
				"pending": res.Pending,
			}).Info("sync flush completed")
		}
	}
}

func (s *Syncer) indexLocked(id string) int {
	return slices.IndexFunc(s.queue, func(e Entry) bool { return e.Transaction.ID == id })
}

func (s *Syncer) persistLocked(ctx context.Context) error {
	entries := s.queue
	if entries == nil {
		entries = []Entry{}
	}
	pq := persistedQueue{Entries: entries, Outcomes: s.outcomes}
	return apperr.Persistence("save", storage.KeySyncQueue, s.store.Save(ctx, storage.KeySyncQueue, pq))
}

func (s *Syncer) statsLocked() Stats {
	return Stats{
		Pending:   len(s.queue),
		Synced:    s.synced,
		Dropped:   s.dropped,
		Syncing:   s.busy.Load(),
		Endpoint:  s.endpoint != nil && s.endpoint() != "",
		LastFlush: s.lastFlush,
		LastError: s.lastErr,
	}
}

func (s *Syncer) notify(st Stats) {
	if s.OnChange != nil {
		s.OnChange(st)
	}
}
