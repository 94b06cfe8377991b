package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so store functions can run
// standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{IsolationLevel: sql.LevelReadCommitted, MaxRetries: 3}
}

// CheckoutTxOptions is used for every write that moves stock or closes a cart.
func CheckoutTxOptions() TxOptions {
	return TxOptions{IsolationLevel: sql.LevelSerializable, MaxRetries: 5}
}

func (o TxOptions) sqlOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: o.IsolationLevel, ReadOnly: o.ReadOnly}
}

// runTx executes fn in one transaction, rolling back when fn fails.
func runTx(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts.sqlOptions())
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WithTransaction runs fn once, committing when it returns nil.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	return runTx(ctx, db, opts, fn)
}

// WithRetry runs fn in a fresh transaction until it commits, the error is not
// a serialization failure, deadlock or lock timeout, or opts.MaxRetries
// retries have been spent.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	backoff := 50 * time.Millisecond

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := runTx(ctx, db, opts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		if err := sleepBackoff(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

// sleepBackoff waits for d plus up to a quarter of jitter.
func sleepBackoff(ctx context.Context, d time.Duration) error {
	wait := d
	if quarter := int64(d / 4); quarter > 0 {
		wait += time.Duration(rand.Int63n(quarter))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
