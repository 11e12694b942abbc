package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	createMySQLKVTableSQL = `CREATE TABLE IF NOT EXISTS kv_store (
	k          VARCHAR(191) NOT NULL PRIMARY KEY,
	v          LONGTEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`
	loadMySQLKVSQL   = `SELECT v FROM kv_store WHERE k = ?`
	upsertMySQLKVSQL = `INSERT INTO kv_store (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`
)

// MySQL stores documents in a kv_store table through database/sql.
type MySQL struct {
	db *sql.DB
}

// NewMySQL wraps an open *sql.DB. The caller owns its lifecycle.
func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

// OpenMySQL opens dsn, tunes the pool and ensures the schema exists.
func OpenMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	if dsn == "" {
		return nil, errors.New("storage: empty MYSQL_DSN")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping mysql: %w", err)
	}

	if _, err := db.ExecContext(ctx, createMySQLKVTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create kv_store: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

func (m *MySQL) Load(ctx context.Context, key string, v any) error {
	var raw string
	if err := m.db.QueryRowContext(ctx, loadMySQLKVSQL, key).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func (m *MySQL) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx, upsertMySQLKVSQL, key, string(raw))
	return err
}
