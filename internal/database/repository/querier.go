package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so a repo can be bound
// to a transaction for multi-entity atomic writes.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrStaleVersion is returned by compare-and-swap updates when the row's
// version (or state) no longer matches what the caller read.
var ErrStaleVersion = errors.New("repository: stale version")
