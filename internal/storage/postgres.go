package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createKVTableSQL = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	loadKVSQL   = `SELECT value FROM kv_store WHERE key = $1`
	upsertKVSQL = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// DBTX is the subset of pgx used by Postgres. Satisfied by *pgxpool.Pool,
// *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores documents as JSONB rows in a kv_store table.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection. The caller owns its lifecycle.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects a pool to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	pg := &Postgres{db: pool, pool: pool}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}

// EnsureSchema creates the kv_store table if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createKVTableSQL); err != nil {
		return fmt.Errorf("storage: create kv_store: %w", err)
	}
	return nil
}

// Close releases the pool when Postgres opened it.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Load(ctx context.Context, key string, v any) error {
	var raw []byte
	if err := p.db.QueryRow(ctx, loadKVSQL, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, v)
}

func (p *Postgres) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, upsertKVSQL, key, raw)
	return err
}
