package usecase

import (
	"context"
	"time"

	"github.com/iho/postingledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	SetFrozen(ctx context.Context, id string, frozen bool) error
}

// BalanceRepository defines data access for balances.
// GetForUpdate holds a row lock on (accountID, currency) until the transaction
// ends. GetForUpdate, Get and GetLatest return (nil, nil) when no row exists.
type BalanceRepository interface {
	GetForUpdate(ctx context.Context, tx Transaction, accountID, currency string) (*domain.Balance, error)
	Insert(ctx context.Context, tx Transaction, balance *domain.Balance) error
	UpdateAmount(ctx context.Context, tx Transaction, id string, amountMinor int64, updatedAt time.Time) error
	Get(ctx context.Context, accountID, currency string) (*domain.Balance, error)
	GetLatest(ctx context.Context, accountID string) (*domain.Balance, error)
}

// TransactionRepository defines data access for transactions.
// Methods taking a Transaction fall back to the pool when tx is nil.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, transaction *domain.Transaction) error
	LockIdempotencyKey(ctx context.Context, tx Transaction, tenantID *string, key string) error
	GetByIdempotencyKey(ctx context.Context, tx Transaction, tenantID *string, key string) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, tx Transaction, id string, tenantID *string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, gatewayRefID *string, updatedAt time.Time) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByGatewayRef(ctx context.Context, gatewayRefID string, status *domain.TransactionStatus) (*domain.Transaction, error)
	GetPendingByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByOwner(ctx context.Context, ownerAccountID string, limit, offset int) ([]*domain.Transaction, error)
}

// EntryRepository defines data access for entries.
type EntryRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, entries []*domain.Entry) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.Entry, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	FindBalanceMismatches(ctx context.Context) ([]BalanceMismatch, error)
	TotalsByCurrency(ctx context.Context) ([]CurrencyTotals, error)
}

// BalanceMismatch is a balance row whose stored amount differs from its replayed entries.
type BalanceMismatch struct {
	AccountID     string
	Currency      string
	StoredMinor   int64
	ReplayedMinor int64
}

// CurrencyTotals is the sum of debit and credit entries in one currency.
type CurrencyTotals struct {
	Currency    string
	TotalDebit  int64
	TotalCredit int64
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
	CountUnpublished(ctx context.Context) (int64, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient store failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key so the request can be retried.
	Delete(ctx context.Context, key string) error
}

// Locker provides short-lived mutual exclusion across server instances.
type Locker interface {
	// Acquire returns false when the lock is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// PaymentRequest is the payload handed to an external payment gateway.
type PaymentRequest struct {
	TransactionID   string
	PaymentMethodID string
	Currency        string
	AmountMinor     int64
}

// PaymentGateway charges or pays out through an external provider and
// returns the provider's reference id.
type PaymentGateway interface {
	Charge(ctx context.Context, req PaymentRequest) (string, error)
	Payout(ctx context.Context, req PaymentRequest) (string, error)
}
