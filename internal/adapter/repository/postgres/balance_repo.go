package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// GetForUpdate locks the (account, currency) row for the rest of tx.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, accountID, currency string) (*domain.Balance, error) {
	row, err := queriesFor(r.db, tx).GetBalanceForUpdate(ctx, generated.GetBalanceForUpdateParams{
		AccountID: accountID,
		Currency:  currency,
	})

	return balanceOrNil(row, err)
}

// Insert creates the first balance row of an (account, currency) pair.
// A concurrent insert of the same pair surfaces as a unique violation that
// the retrier treats as transient.
func (r *BalanceRepository) Insert(ctx context.Context, tx usecase.Transaction, balance *domain.Balance) error {
	return queriesFor(r.db, tx).CreateBalance(ctx, generated.CreateBalanceParams{
		ID:          balance.ID,
		TenantID:    textFromPtr(balance.TenantID),
		AccountID:   balance.AccountID,
		Currency:    balance.Currency,
		AmountMinor: balance.AmountMinor,
		UpdatedAt:   timeToPgTimestamptz(balance.UpdatedAt),
	})
}

// UpdateAmount overwrites the stored amount of a locked balance row.
func (r *BalanceRepository) UpdateAmount(ctx context.Context, tx usecase.Transaction, id string, amountMinor int64, updatedAt time.Time) error {
	return queriesFor(r.db, tx).UpdateBalanceAmount(ctx, generated.UpdateBalanceAmountParams{
		ID:          id,
		AmountMinor: amountMinor,
		UpdatedAt:   timeToPgTimestamptz(updatedAt),
	})
}

// Get reads a balance without locking.
func (r *BalanceRepository) Get(ctx context.Context, accountID, currency string) (*domain.Balance, error) {
	row, err := r.queries.GetBalance(ctx, generated.GetBalanceParams{
		AccountID: accountID,
		Currency:  currency,
	})

	return balanceOrNil(row, err)
}

// GetLatest returns the most recently updated balance of an account.
func (r *BalanceRepository) GetLatest(ctx context.Context, accountID string) (*domain.Balance, error) {
	row, err := r.queries.GetLatestBalance(ctx, accountID)

	return balanceOrNil(row, err)
}

func balanceOrNil(row generated.Balance, err error) (*domain.Balance, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &domain.Balance{
		ID:          row.ID,
		TenantID:    ptrFromText(row.TenantID),
		AccountID:   row.AccountID,
		Currency:    row.Currency,
		AmountMinor: row.AmountMinor,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}
