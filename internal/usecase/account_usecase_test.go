package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
	"github.com/iho/postingledger/internal/usecase/mocks"
)

func TestAccountUseCase_CreateAccount(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.CreateAccountInput
		setupMocks  func(*mocks.MockAccountRepository, *mocks.MockIDGenerator)
		expectError error
	}{
		{
			name:  "generated id",
			input: usecase.CreateAccountInput{Type: domain.AccountTypeLiability},
			setupMocks: func(repo *mocks.MockAccountRepository, idGen *mocks.MockIDGenerator) {
				idGen.EXPECT().Generate().Return("acc-1")
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:  "caller supplied id",
			input: usecase.CreateAccountInput{ID: "wallet-7", Type: domain.AccountTypeAsset},
			setupMocks: func(repo *mocks.MockAccountRepository, idGen *mocks.MockIDGenerator) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:        "unknown type",
			input:       usecase.CreateAccountInput{Type: "WALLET"},
			setupMocks:  func(*mocks.MockAccountRepository, *mocks.MockIDGenerator) {},
			expectError: domain.ErrInvalidRequest,
		},
		{
			name:  "duplicate id",
			input: usecase.CreateAccountInput{ID: "wallet-7", Type: domain.AccountTypeAsset},
			setupMocks: func(repo *mocks.MockAccountRepository, idGen *mocks.MockIDGenerator) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrAccountExists)
			},
			expectError: domain.ErrAccountExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockAccountRepository(ctrl)
			idGen := mocks.NewMockIDGenerator(ctrl)
			tt.setupMocks(repo, idGen)

			uc := usecase.NewAccountUseCase(repo, idGen, zerolog.Nop())
			account, err := uc.CreateAccount(context.Background(), tt.input)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.input.Type, account.Type)
			assert.NotEmpty(t, account.ID)
		})
	}
}

func TestAccountUseCase_SetFrozen(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAccountRepository(ctrl)

	repo.EXPECT().SetFrozen(gomock.Any(), "acc-1", true).Return(nil)
	repo.EXPECT().GetByID(gomock.Any(), "acc-1").Return(&domain.Account{ID: "acc-1", Frozen: true}, nil)

	uc := usecase.NewAccountUseCase(repo, mocks.NewMockIDGenerator(ctrl), zerolog.Nop())

	account, err := uc.SetFrozen(context.Background(), "acc-1", true)
	require.NoError(t, err)
	assert.True(t, account.Frozen)
}

func TestAccountUseCase_EnsureSystemAccountsIsRepeatable(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.accounts.EnsureSystemAccounts(context.Background(), testSystemAccounts))

	external, err := e.accounts.GetAccount(context.Background(), testSystemAccounts.ExternalCash)
	require.NoError(t, err)
	assert.True(t, external.AllowNegativeBalance)
	assert.Equal(t, domain.AccountTypeAsset, external.Type)

	revenue, err := e.accounts.GetAccount(context.Background(), testSystemAccounts.Revenue)
	require.NoError(t, err)
	assert.False(t, revenue.AllowNegativeBalance)

	err = e.accounts.EnsureSystemAccounts(context.Background(), usecase.SystemAccounts{Revenue: "r"})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
