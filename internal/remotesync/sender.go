package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/ledger"
)

const maxAckBytes = 1 << 20

// Errors wrapped in *apperr.SyncError by HTTPSender.
var (
	ErrRemoteStatus = errors.New("unexpected response status")
	ErrRejected     = errors.New("remote rejected transaction")
	ErrNotAlive     = errors.New("endpoint did not answer as alive")
)

// pingID labels connection tests in SyncError.
const pingID = "connection-test"

// Sender delivers transactions to endpoint. Ping checks the endpoint
// without posting anything.
type Sender interface {
	Send(ctx context.Context, endpoint string, tx ledger.Transaction) error
	Ping(ctx context.Context, endpoint string) error
}

// HTTPSender POSTs transactions as JSON. The remote acknowledges with
// {"status":"success"}; a 2xx response whose body is not JSON is taken as
// success, since spreadsheet web-app endpoints often answer with a redirect
// page.
type HTTPSender struct {
	Client *http.Client
}

// NewHTTPSender creates a sender with the given request timeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{Client: &http.Client{Timeout: timeout}}
}

type ack struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *HTTPSender) Send(ctx context.Context, endpoint string, tx ledger.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return &apperr.SyncError{TransactionID: tx.ID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &apperr.SyncError{TransactionID: tx.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &apperr.SyncError{TransactionID: tx.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperr.SyncError{TransactionID: tx.ID, StatusCode: resp.StatusCode, Err: ErrRemoteStatus}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return nil
	}
	var a ack
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}
	if a.Status != "success" {
		reason := a.Message
		if reason == "" {
			reason = a.Status
		}
		return &apperr.SyncError{
			TransactionID: tx.ID,
			StatusCode:    resp.StatusCode,
			Err:           fmt.Errorf("%w: %s", ErrRejected, reason),
		}
	}
	return nil
}

// Ping sends GET endpoint?test=true. A live endpoint answers
// {"status":"alive"}.
func (s *HTTPSender) Ping(ctx context.Context, endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return &apperr.SyncError{TransactionID: pingID, Err: err}
	}
	q := u.Query()
	q.Set("test", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &apperr.SyncError{TransactionID: pingID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &apperr.SyncError{TransactionID: pingID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperr.SyncError{TransactionID: pingID, StatusCode: resp.StatusCode, Err: ErrRemoteStatus}
	}
	var a ack
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAckBytes)).Decode(&a); err != nil || a.Status != "alive" {
		return &apperr.SyncError{TransactionID: pingID, StatusCode: resp.StatusCode, Err: ErrNotAlive}
	}
	return nil
}
