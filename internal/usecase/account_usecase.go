package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator, logger zerolog.Logger) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		logger:      logger.With().Str("component", "accounts").Logger(),
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	TenantID *string
	OwnerID  *string
	// ID is generated when empty.
	ID                   string
	Type                 domain.AccountType
	AllowNegativeBalance bool
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrInvalidRequest, input.Type)
	}

	if len(input.ID) > domain.MaxRefLen {
		return nil, fmt.Errorf("%w: account id too long", domain.ErrInvalidRequest)
	}

	id := input.ID
	if id == "" {
		id = uc.idGen.Generate()
	}

	account := &domain.Account{
		ID:                   id,
		TenantID:             input.TenantID,
		OwnerID:              input.OwnerID,
		Type:                 input.Type,
		AllowNegativeBalance: input.AllowNegativeBalance,
		CreatedAt:            time.Now().UTC(),
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// SetFrozen freezes or unfreezes an account. A frozen account accepts
// credits but rejects any posting that lowers its balance.
func (uc *AccountUseCase) SetFrozen(ctx context.Context, id string, frozen bool) (*domain.Account, error) {
	if err := uc.accountRepo.SetFrozen(ctx, id, frozen); err != nil {
		return nil, err
	}

	uc.logger.Info().Str("account_id", id).Bool("frozen", frozen).Msg("account freeze changed")

	return uc.accountRepo.GetByID(ctx, id)
}

// EnsureSystemAccounts creates any missing platform account. External cash
// is the only account allowed to run negative.
func (uc *AccountUseCase) EnsureSystemAccounts(ctx context.Context, accounts SystemAccounts) error {
	if err := accounts.Validate(); err != nil {
		return err
	}

	required := []CreateAccountInput{
		{ID: accounts.ExternalCash, Type: domain.AccountTypeAsset, AllowNegativeBalance: true},
		{ID: accounts.Revenue, Type: domain.AccountTypeRevenue},
		{ID: accounts.Tax, Type: domain.AccountTypeLiability},
		{ID: accounts.Escrow, Type: domain.AccountTypeLiability},
	}

	for _, input := range required {
		_, err := uc.CreateAccount(ctx, input)
		if errors.Is(err, domain.ErrAccountExists) {
			continue
		}

		if err != nil {
			return fmt.Errorf("ensure system account %s: %w", input.ID, err)
		}

		uc.logger.Info().Str("account_id", input.ID).Str("type", string(input.Type)).Msg("system account created")
	}

	return nil
}
