package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB for connection management
type DB struct {
	conn *sql.DB
}

// New creates a new DB connection
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// session pragmas below are per connection, so keep the pool at one
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	// cascade deletes from users to generated content rely on this pragma
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// workers race on queue claims; waiting beats failing with SQLITE_BUSY
	if _, err := conn.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// QueryRows executes a query that may return multiple rows
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// BeginTx starts a transaction scoped to the calling unit of work
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, nil)
}

// GetConn returns the underlying sql.DB
func (db *DB) GetConn() *sql.DB {
	return db.conn
}
