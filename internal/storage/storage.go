// Package storage is the persistence port for the POS state.
//
// Cart, ledger, settings and sync queue are stored as JSON documents under
// namespaced keys. Callers depend on Store, never on a concrete backend.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/nasidaunjeruk/pos/internal/enum"
)

// ErrNotFound is returned by Load when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Namespaced keys.
const (
	KeyCart      = "ndj_pos:cart"
	KeyLedger    = "ndj_pos:ledger"
	KeySettings  = "ndj_pos:settings"
	KeySyncQueue = "ndj_pos:sync_queue"
)

// Store loads and saves JSON-serialisable values by key.
// Satisfied by *Memory, *File, *Postgres and *MySQL.
type Store interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
}

// Options selects and configures a backend for Open.
type Options struct {
	Driver      string
	DataDir     string
	DatabaseURL string
	MySQLDSN    string
}

// Open builds the Store for opts.Driver. The returned close func releases
// any pooled connections and is never nil.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	noop := func() {}
	switch opts.Driver {
	case enum.StorageDriverMemory:
		return NewMemory(), noop, nil
	case enum.StorageDriverFile, "":
		fs, err := NewFile(opts.DataDir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case enum.StorageDriverPostgres:
		pg, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return pg, pg.Close, nil
	case enum.StorageDriverMySQL:
		my, err := OpenMySQL(ctx, opts.MySQLDSN)
		if err != nil {
			return nil, noop, err
		}
		return my, func() { _ = my.Close() }, nil
	}
	return nil, noop, fmt.Errorf("storage: unknown driver %q", opts.Driver)
}
