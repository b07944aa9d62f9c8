package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vitrina/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.BookingStore over a connection pool or a transaction.
type Store struct {
	q querier
}

var _ domain.BookingStore = (*Store)(nil)

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func now() time.Time {
	return time.Now().UTC()
}
