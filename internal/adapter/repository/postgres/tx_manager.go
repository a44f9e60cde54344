package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/postingledger/internal/usecase"
)

// DefaultLockTimeout bounds how long a posting waits on a balance or
// transaction row lock before Postgres aborts it with 55P03.
const DefaultLockTimeout = 5 * time.Second

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	pool        pgxPool
	lockTimeout time.Duration
}

// TxManagerOption configures a TxManager.
type TxManagerOption func(*TxManager)

// WithLockTimeout sets the per-transaction lock_timeout. Zero disables it.
func WithLockTimeout(d time.Duration) TxManagerOption {
	return func(m *TxManager) {
		m.lockTimeout = d
	}
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool, opts ...TxManagerOption) *TxManager {
	return newTxManagerWithPool(pool, opts...)
}

func newTxManagerWithPool(pool pgxPool, opts ...TxManagerOption) *TxManager {
	m := &TxManager{pool: pool, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Begin starts a read-committed transaction. Posting correctness relies on
// row locks taken by the balance and transaction repositories; a lock wait
// longer than the configured timeout fails with a retryable error.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	if m.lockTimeout > 0 {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", m.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Rolling back a finished transaction
// is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
