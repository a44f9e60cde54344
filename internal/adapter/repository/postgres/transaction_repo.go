package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create inserts a transaction. A second insert of the same (tenant,
// idempotency key) pair returns domain.ErrDuplicateIdempotencyKey.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, transaction *domain.Transaction) error {
	var metadata []byte
	if transaction.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(transaction.Metadata); err != nil {
			return err
		}
	}

	err := queriesFor(r.db, tx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:             transaction.ID,
		TenantID:       textFromPtr(transaction.TenantID),
		OwnerAccountID: textFromPtr(transaction.OwnerAccountID),
		GatewayRefID:   textFromPtr(transaction.GatewayRefID),
		IdempotencyKey: textFromPtr(transaction.IdempotencyKey),
		Type:           transaction.Type,
		Currency:       transaction.Currency,
		Status:         string(transaction.Status),
		AmountMinor:    transaction.AmountMinor,
		Metadata:       metadata,
		CreatedAt:      timeToPgTimestamptz(transaction.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(transaction.UpdatedAt),
	})
	if isUniqueViolation(err, constraintTenantIdempotencyKey) {
		return domain.ErrDuplicateIdempotencyKey
	}

	return err
}

// LockIdempotencyKey takes a transaction-scoped advisory lock on the
// (tenant, key) pair so concurrent requests with the same key serialize.
func (r *TransactionRepository) LockIdempotencyKey(ctx context.Context, tx usecase.Transaction, tenantID *string, key string) error {
	return queriesFor(r.db, tx).LockIdempotencyKey(ctx, idempotencyLockKey(tenantID, key))
}

// GetByIdempotencyKey finds the transaction stored under a (tenant, key) pair.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, tx usecase.Transaction, tenantID *string, key string) (*domain.Transaction, error) {
	row, err := queriesFor(r.db, tx).GetTransactionByIdempotencyKey(ctx, generated.GetTransactionByIdempotencyKeyParams{
		TenantID:       textFromPtr(tenantID),
		IdempotencyKey: key,
	})

	return transactionOrNotFound(row, err)
}

// GetForUpdate locks a transaction row. A non-nil tenantID must match.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, id string, tenantID *string) (*domain.Transaction, error) {
	row, err := queriesFor(r.db, tx).GetTransactionForUpdate(ctx, generated.GetTransactionForUpdateParams{
		ID:       id,
		TenantID: textFromPtr(tenantID),
	})

	return transactionOrNotFound(row, err)
}

// UpdateStatus sets the status and gateway reference of a transaction.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, gatewayRefID *string, updatedAt time.Time) error {
	return queriesFor(r.db, tx).UpdateTransactionStatus(ctx, generated.UpdateTransactionStatusParams{
		ID:           id,
		Status:       string(status),
		GatewayRefID: textFromPtr(gatewayRefID),
		UpdatedAt:    timeToPgTimestamptz(updatedAt),
	})
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)

	return transactionOrNotFound(row, err)
}

// GetByGatewayRef returns the earliest transaction carrying the reference,
// optionally restricted to one status.
func (r *TransactionRepository) GetByGatewayRef(ctx context.Context, gatewayRefID string, status *domain.TransactionStatus) (*domain.Transaction, error) {
	var statusText pgtype.Text
	if status != nil {
		statusText = pgtype.Text{String: string(*status), Valid: true}
	}

	row, err := r.queries.GetTransactionByGatewayRef(ctx, generated.GetTransactionByGatewayRefParams{
		GatewayRefID: gatewayRefID,
		Status:       statusText,
	})

	return transactionOrNotFound(row, err)
}

// GetPendingByID retrieves a transaction only while it is PENDING.
func (r *TransactionRepository) GetPendingByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetPendingTransactionByID(ctx, id)

	return transactionOrNotFound(row, err)
}

// ListByOwner lists an account's transactions, newest first.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerAccountID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByOwner(ctx, generated.ListTransactionsByOwnerParams{
		OwnerAccountID: pgtype.Text{String: ownerAccountID, Valid: true},
		Limit:          int32(limit),
		Offset:         int32(offset),
	})
	if err != nil {
		return nil, err
	}

	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, rowToTransaction(row))
	}

	return transactions, nil
}

func idempotencyLockKey(tenantID *string, key string) string {
	if tenantID == nil {
		return "idem::" + key
	}

	return "idem:" + *tenantID + ":" + key
}

func transactionOrNotFound(row generated.Transaction, err error) (*domain.Transaction, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	var metadata map[string]any
	if row.Metadata != nil {
		_ = json.Unmarshal(row.Metadata, &metadata)
	}

	return &domain.Transaction{
		ID:             row.ID,
		TenantID:       ptrFromText(row.TenantID),
		OwnerAccountID: ptrFromText(row.OwnerAccountID),
		GatewayRefID:   ptrFromText(row.GatewayRefID),
		IdempotencyKey: ptrFromText(row.IdempotencyKey),
		Type:           row.Type,
		Currency:       row.Currency,
		Status:         domain.TransactionStatus(row.Status),
		AmountMinor:    row.AmountMinor,
		Metadata:       metadata,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}
