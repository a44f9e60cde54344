package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db      generated.DBTX
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{
		db:      db,
		queries: generated.New(db),
	}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:                   account.ID,
		TenantID:             textFromPtr(account.TenantID),
		OwnerID:              textFromPtr(account.OwnerID),
		Type:                 string(account.Type),
		Frozen:               account.Frozen,
		AllowNegativeBalance: account.AllowNegativeBalance,
		CreatedAt:            timeToPgTimestamptz(account.CreatedAt),
	})
	if isUniqueViolation(err, constraintAccountsPK) {
		return domain.ErrAccountExists
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDs retrieves the accounts that exist among ids. Missing ids are
// simply absent from the result.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := queriesFor(r.db, tx).GetAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// SetFrozen sets the frozen flag of an account.
func (r *AccountRepository) SetFrozen(ctx context.Context, id string, frozen bool) error {
	n, err := r.queries.SetAccountFrozen(ctx, generated.SetAccountFrozenParams{ID: id, Frozen: frozen})
	if err != nil {
		return err
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:                   row.ID,
		TenantID:             ptrFromText(row.TenantID),
		OwnerID:              ptrFromText(row.OwnerID),
		Type:                 domain.AccountType(row.Type),
		Frozen:               row.Frozen,
		AllowNegativeBalance: row.AllowNegativeBalance,
		CreatedAt:            row.CreatedAt.Time,
	}
}
