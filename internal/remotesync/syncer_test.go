package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/shopspring/decimal"
)

// mockSender implements Sender with a function field.
type mockSender struct {
	mu     sync.Mutex
	calls  []string
	sendFn func(ctx context.Context, endpoint string, tx ledger.Transaction) error
	pingFn func(ctx context.Context, endpoint string) error
}

func (m *mockSender) Send(ctx context.Context, endpoint string, tx ledger.Transaction) error {
	m.mu.Lock()
	m.calls = append(m.calls, tx.ID)
	m.mu.Unlock()
	if m.sendFn == nil {
		return nil
	}
	return m.sendFn(ctx, endpoint, tx)
}

func (m *mockSender) Ping(ctx context.Context, endpoint string) error {
	if m.pingFn == nil {
		return nil
	}
	return m.pingFn(ctx, endpoint)
}

func endpointOf(url string) EndpointFunc { return func() string { return url } }

func tx(id string) ledger.Transaction {
	return ledger.Transaction{ID: id, Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), Total: decimal.NewFromInt(25000)}
}

func newTestSyncer(store storage.Store, sender Sender, opts Options) (*Syncer, *time.Time) {
	s := New(store, sender, endpointOf("http://sheets.example/exec"), opts)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestEnqueueAndFlush(t *testing.T) {
	store := storage.NewMemory()
	sender := &mockSender{}
	s, _ := newTestSyncer(store, sender, Options{})
	ctx := context.Background()

	var changes []Stats
	s.OnChange = func(st Stats) { changes = append(changes, st) }

	if err := s.Enqueue(ctx, tx("TRX-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.Enqueue(ctx, tx("TRX-1")); err != nil {
		t.Fatalf("enqueue duplicate: %v", err)
	}
	s.Enqueue(ctx, tx("TRX-2"))

	if got := s.Stats().Pending; got != 2 {
		t.Fatalf("expected 2 pending, got %d", got)
	}

	res, err := s.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Sent != 2 || res.Pending != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(sender.calls) != 2 {
		t.Errorf("expected 2 sends, got %v", sender.calls)
	}
	st := s.Stats()
	if st.Synced != 2 || st.Pending != 0 || st.LastFlush.IsZero() {
		t.Errorf("unexpected stats %+v", st)
	}
	if len(changes) != 3 {
		t.Errorf("expected 3 change notifications, got %d", len(changes))
	}
}

func TestFlushRetryAndDrop(t *testing.T) {
	sender := &mockSender{sendFn: func(ctx context.Context, endpoint string, tx ledger.Transaction) error {
		return &apperr.SyncError{TransactionID: tx.ID, StatusCode: 500, Err: ErrRemoteStatus}
	}}
	s, now := newTestSyncer(storage.NewMemory(), sender, Options{MaxRetries: 3, InitialBackoff: time.Minute, MaxBackoff: time.Hour})
	ctx := context.Background()
	s.Enqueue(ctx, tx("TRX-1"))

	res, _ := s.Flush(ctx)
	if res.Failed != 1 || res.Pending != 1 {
		t.Fatalf("first flush: %+v", res)
	}
	entry := s.Pending()[0]
	if entry.RetryCount != 1 || entry.LastError == "" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if want := now.Add(time.Minute); !entry.NextAttempt.Equal(want) {
		t.Errorf("expected next attempt %v, got %v", want, entry.NextAttempt)
	}

	// Not yet due.
	res, _ = s.Flush(ctx)
	if res.Deferred != 1 || len(sender.calls) != 1 {
		t.Errorf("expected deferred entry, got %+v calls=%d", res, len(sender.calls))
	}

	*now = now.Add(time.Minute)
	s.Flush(ctx)
	if e := s.Pending()[0]; e.RetryCount != 2 || !e.NextAttempt.Equal(now.Add(2*time.Minute)) {
		t.Errorf("expected doubled backoff, got %+v", e)
	}

	res, _ = s.FlushNow(ctx)
	if res.Dropped != 1 || res.Pending != 0 {
		t.Errorf("expected drop at max retries, got %+v", res)
	}
	if st := s.Stats(); st.Dropped != 1 || st.LastError == "" {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestDelaySchedule(t *testing.T) {
	s := New(storage.NewMemory(), &mockSender{}, nil, Options{InitialBackoff: time.Minute, MaxBackoff: 5 * time.Minute})

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 5 * time.Minute},
		{8, 5 * time.Minute},
	}
	for _, tc := range tests {
		if got := s.delay(tc.retry); got != tc.want {
			t.Errorf("retry %d: expected %v, got %v", tc.retry, tc.want, got)
		}
	}
}

func TestTransactionStatus(t *testing.T) {
	failing := map[string]bool{"TRX-2": true}
	sender := &mockSender{sendFn: func(ctx context.Context, endpoint string, tx ledger.Transaction) error {
		if failing[tx.ID] {
			return errors.New("sheet unavailable")
		}
		return nil
	}}
	store := storage.NewMemory()
	s, now := newTestSyncer(store, sender, Options{MaxRetries: 2})
	ctx := context.Background()

	if _, ok := s.Status("TRX-1"); ok {
		t.Fatal("unknown id should have no status")
	}
	s.Enqueue(ctx, tx("TRX-1"))
	s.Enqueue(ctx, tx("TRX-2"))
	if st, ok := s.Status("TRX-1"); !ok || st.State != enum.SyncStatePending {
		t.Fatalf("expected pending, got %+v %v", st, ok)
	}

	s.Flush(ctx)
	st, _ := s.Status("TRX-1")
	if st.State != enum.SyncStateSynced || !st.SyncedAt.Equal(*now) {
		t.Errorf("expected synced at %v, got %+v", *now, st)
	}
	st, _ = s.Status("TRX-2")
	if st.State != enum.SyncStatePending || st.RetryCount != 1 || st.LastError == "" {
		t.Errorf("expected pending retry, got %+v", st)
	}

	s.FlushNow(ctx)
	st, _ = s.Status("TRX-2")
	if st.State != enum.SyncStateFailed || st.RetryCount != 2 || !st.SyncedAt.IsZero() {
		t.Errorf("expected failed, got %+v", st)
	}

	restored := New(store, sender, endpointOf("x"), Options{})
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st, ok := restored.Status("TRX-1"); !ok || st.State != enum.SyncStateSynced {
		t.Errorf("outcome not persisted, got %+v %v", st, ok)
	}

	s.Remove(ctx, "TRX-1")
	if _, ok := s.Status("TRX-1"); ok {
		t.Error("removed transaction should have no status")
	}
}

func TestTestConnection(t *testing.T) {
	var pinged string
	sender := &mockSender{pingFn: func(ctx context.Context, endpoint string) error {
		pinged = endpoint
		if endpoint == "https://down.example/exec" {
			return &apperr.SyncError{TransactionID: "connection-test", Err: ErrNotAlive}
		}
		return nil
	}}
	s, _ := newTestSyncer(storage.NewMemory(), sender, Options{})
	ctx := context.Background()

	if err := s.TestConnection(ctx, ""); err != nil || pinged != "http://sheets.example/exec" {
		t.Errorf("expected configured endpoint to be pinged, got %q %v", pinged, err)
	}
	if err := s.TestConnection(ctx, "https://down.example/exec"); !errors.Is(err, ErrNotAlive) {
		t.Errorf("expected ErrNotAlive, got %v", err)
	}
	if err := s.TestConnection(ctx, "ftp://sheets.example"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	unset := New(storage.NewMemory(), sender, endpointOf(""), Options{})
	if err := unset.TestConnection(ctx, ""); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestFlushNoEndpoint(t *testing.T) {
	s := New(storage.NewMemory(), &mockSender{}, endpointOf(""), Options{})
	s.Enqueue(context.Background(), tx("TRX-1"))

	res, err := s.Flush(context.Background())
	if !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
	if res.Pending != 1 {
		t.Errorf("queue must be kept, got %+v", res)
	}
	if s.Stats().Endpoint {
		t.Error("stats should report no endpoint")
	}
}

func TestFlushInProgress(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	sender := &mockSender{sendFn: func(ctx context.Context, endpoint string, tx ledger.Transaction) error {
		close(started)
		<-release
		return nil
	}}
	s, _ := newTestSyncer(storage.NewMemory(), sender, Options{})
	ctx := context.Background()
	s.Enqueue(ctx, tx("TRX-1"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Flush(ctx)
		done <- err
	}()
	<-started

	if _, err := s.Flush(ctx); !errors.Is(err, ErrFlushInProgress) {
		t.Errorf("expected ErrFlushInProgress, got %v", err)
	}
	if !s.Stats().Syncing {
		t.Error("expected syncing flag")
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first flush: %v", err)
	}
	if s.Stats().Syncing {
		t.Error("busy flag not cleared")
	}
}

func TestRemoveWhileSending(t *testing.T) {
	var s *Syncer
	sender := &mockSender{sendFn: func(ctx context.Context, endpoint string, tx ledger.Transaction) error {
		s.Remove(ctx, tx.ID)
		return errors.New("boom")
	}}
	s, _ = newTestSyncer(storage.NewMemory(), sender, Options{})
	ctx := context.Background()
	s.Enqueue(ctx, tx("TRX-1"))

	res, err := s.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Failed != 0 || res.Pending != 0 {
		t.Errorf("removed entry must not be retried, got %+v", res)
	}
}

func TestLoadQueue(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	first, _ := newTestSyncer(store, &mockSender{}, Options{})
	first.Enqueue(ctx, tx("TRX-1"))
	first.Enqueue(ctx, tx("TRX-2"))

	second := New(store, &mockSender{}, endpointOf("x"), Options{})
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(second.Pending()); got != 2 {
		t.Errorf("expected 2 restored entries, got %d", got)
	}

	empty := New(storage.NewMemory(), &mockSender{}, nil, Options{})
	if err := empty.Load(ctx); err != nil {
		t.Errorf("missing queue should load empty: %v", err)
	}
}

func TestEnqueuePersistenceFailure(t *testing.T) {
	store := storage.NewMemory()
	store.FailSave = errors.New("quota exceeded")
	s, _ := newTestSyncer(store, &mockSender{}, Options{})

	err := s.Enqueue(context.Background(), tx("TRX-1"))
	if !apperr.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if s.Stats().Pending != 1 {
		t.Error("entry must stay queued in memory")
	}
}

func TestRunKick(t *testing.T) {
	sent := make(chan string, 1)
	sender := &mockSender{sendFn: func(ctx context.Context, endpoint string, tx ledger.Transaction) error {
		sent <- tx.ID
		return nil
	}}
	s := New(storage.NewMemory(), sender, endpointOf("x"), Options{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	s.Enqueue(ctx, tx("TRX-1"))
	s.Kick()

	select {
	case id := <-sent:
		if id != "TRX-1" {
			t.Errorf("unexpected id %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("kick did not trigger a flush")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestHTTPSender(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantStatus int
	}{
		{"acknowledged", http.StatusOK, `{"status":"success"}`, nil, 0},
		{"opaque body", http.StatusOK, `<html>moved</html>`, nil, 0},
		{"rejected", http.StatusOK, `{"status":"error","message":"sheet locked"}`, ErrRejected, http.StatusOK},
		{"server error", http.StatusInternalServerError, `oops`, ErrRemoteStatus, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			received := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
				}
				raw, _ := io.ReadAll(r.Body)
				var got ledger.Transaction
				json.Unmarshal(raw, &got)
				received <- got.ID
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			err := NewHTTPSender(time.Second).Send(context.Background(), srv.URL, tx("TRX-9"))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if id := <-received; id != "TRX-9" {
				t.Errorf("server received %q", id)
			}
			if tc.wantErr != nil {
				var se *apperr.SyncError
				if !errors.As(err, &se) || se.StatusCode != tc.wantStatus || se.TransactionID != "TRX-9" {
					t.Errorf("unexpected sync error %#v", err)
				}
			}
		})
	}
}

func TestHTTPSenderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPSender(time.Second).Send(context.Background(), url, tx("TRX-1"))
	if !apperr.IsSync(err) {
		t.Errorf("expected sync error, got %v", err)
	}
}

func TestHTTPSenderPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"alive", http.StatusOK, `{"status":"alive"}`, nil},
		{"wrong status", http.StatusOK, `{"status":"success"}`, ErrNotAlive},
		{"not json", http.StatusOK, `<html>login</html>`, ErrNotAlive},
		{"server error", http.StatusBadGateway, ``, ErrRemoteStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Query().Get("test") != "true" || r.URL.Query().Get("sheet") != "1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			err := NewHTTPSender(time.Second).Ping(context.Background(), srv.URL+"/exec?sheet=1")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil && !apperr.IsSync(err) {
				t.Errorf("expected sync error, got %T", err)
			}
		})
	}
}
