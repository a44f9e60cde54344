package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iho/postingledger/internal/domain"
)

// QueryUseCase serves read-only lookups over balances and transactions.
type QueryUseCase struct {
	balanceRepo BalanceRepository
	txRepo      TransactionRepository
	entryRepo   EntryRepository
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(balanceRepo BalanceRepository, txRepo TransactionRepository, entryRepo EntryRepository) *QueryUseCase {
	return &QueryUseCase{
		balanceRepo: balanceRepo,
		txRepo:      txRepo,
		entryRepo:   entryRepo,
	}
}

// GetAccountBalance returns the balance in minor units as a decimal string.
// With an empty currency it returns the most recently updated balance of the
// account. An account without a matching balance row reports "0".
func (uc *QueryUseCase) GetAccountBalance(ctx context.Context, accountID, currency string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("%w: account id is required", domain.ErrInvalidRequest)
	}

	var (
		balance *domain.Balance
		err     error
	)

	if currency == "" {
		balance, err = uc.balanceRepo.GetLatest(ctx, accountID)
	} else {
		if err := domain.ValidateCurrency(currency); err != nil {
			return "", err
		}

		balance, err = uc.balanceRepo.Get(ctx, accountID, currency)
	}

	if err != nil {
		return "", err
	}

	if balance == nil {
		return "0", nil
	}

	return strconv.FormatInt(balance.AmountMinor, 10), nil
}

// ListTransactionsInput represents input for listing an owner's transactions.
type ListTransactionsInput struct {
	OwnerAccountID string
	Limit          int
	Offset         int
}

// GetAccountTransactions lists transactions owned by an account, newest first.
func (uc *QueryUseCase) GetAccountTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	if input.OwnerAccountID == "" {
		return nil, fmt.Errorf("%w: account id is required", domain.ErrInvalidRequest)
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.txRepo.ListByOwner(ctx, input.OwnerAccountID, limit, offset)
}

// GetTransaction retrieves a transaction by ID.
func (uc *QueryUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetByID(ctx, id)
}

// GetTransactionEntries lists the entries of a transaction.
func (uc *QueryUseCase) GetTransactionEntries(ctx context.Context, transactionID string) ([]*domain.Entry, error) {
	if _, err := uc.txRepo.GetByID(ctx, transactionID); err != nil {
		return nil, err
	}

	return uc.entryRepo.ListByTransaction(ctx, transactionID)
}

// FindPendingTransactionByRefID finds the PENDING transaction carrying a gateway reference.
func (uc *QueryUseCase) FindPendingTransactionByRefID(ctx context.Context, gatewayRefID string) (*domain.Transaction, error) {
	if gatewayRefID == "" {
		return nil, fmt.Errorf("%w: gateway reference is required", domain.ErrInvalidRequest)
	}

	status := domain.StatusPending

	return uc.txRepo.GetByGatewayRef(ctx, gatewayRefID, &status)
}

// FindTransactionByRefID finds the earliest transaction carrying a gateway reference.
func (uc *QueryUseCase) FindTransactionByRefID(ctx context.Context, gatewayRefID string) (*domain.Transaction, error) {
	if gatewayRefID == "" {
		return nil, fmt.Errorf("%w: gateway reference is required", domain.ErrInvalidRequest)
	}

	return uc.txRepo.GetByGatewayRef(ctx, gatewayRefID, nil)
}

// FindPendingTransactionByID returns the transaction only while it is PENDING.
func (uc *QueryUseCase) FindPendingTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.txRepo.GetPendingByID(ctx, id)
}

// FindByIdempotencyKey returns the transaction recorded under key, or nil.
func (uc *QueryUseCase) FindByIdempotencyKey(ctx context.Context, tenantID *string, key string) (*domain.Transaction, error) {
	transaction, err := uc.txRepo.GetByIdempotencyKey(ctx, nil, tenantID, key)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil
	}

	return transaction, err
}
