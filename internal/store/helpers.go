package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timestampLayout is the UTC millisecond format used for every stored time.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// now returns the current UTC time formatted with timestampLayout.
func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// jobExists reports ErrNotFound when no job has the given ID.
func jobExists(ctx context.Context, q queryer, jobID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("job %q: %w", jobID, ErrNotFound)
		}
		return fmt.Errorf("check job: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
