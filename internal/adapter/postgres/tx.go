package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier runs statements. *pgxpool.Pool, pgx.Tx and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// QuerierFromCtx returns the transaction RunInTx stored in ctx, or fallback.
func QuerierFromCtx(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// Beginner starts transactions.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager runs a unit of work in one transaction. With a lock timeout set,
// a statement waiting longer than that for a row lock fails with
// lock_not_available instead of holding a worker.
type TxManager struct {
	db          Beginner
	lockTimeout time.Duration
}

// NewTxManager creates a TxManager. A zero lockTimeout keeps the server default.
func NewTxManager(db Beginner, lockTimeout time.Duration) *TxManager {
	return &TxManager{db: db, lockTimeout: lockTimeout}
}

// RunInTx commits when fn returns nil and rolls back otherwise, including
// when fn panics. Calls do not nest: a RunInTx inside fn opens a second
// transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if m.lockTimeout > 0 {
		// set_config(..., true) is SET LOCAL with a bindable value.
		timeout := fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	done = true
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
