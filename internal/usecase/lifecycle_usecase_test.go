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

func newLifecycleWithMocks(t *testing.T) (*usecase.LifecycleUseCase, *mocks.MockTransaction, *mocks.MockTransactionRepository, *mocks.MockOutboxRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)

	txManager := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
	idGen.EXPECT().Generate().Return("evt-1").AnyTimes()

	return usecase.NewLifecycleUseCase(txManager, txRepo, outboxRepo, idGen, nil, zerolog.Nop()), tx, txRepo, outboxRepo
}

func TestLifecycleUseCase_PendingToPosted(t *testing.T) {
	uc, tx, txRepo, outboxRepo := newLifecycleWithMocks(t)
	ref := "gw-1"

	txRepo.EXPECT().GetForUpdate(gomock.Any(), tx, "tx-1", nil).
		Return(&domain.Transaction{ID: "tx-1", Status: domain.StatusPending}, nil)
	txRepo.EXPECT().UpdateStatus(gomock.Any(), tx, "tx-1", domain.StatusPosted, &ref, gomock.Any()).Return(nil)
	outboxRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
			assert.Equal(t, domain.EventTypeTransactionStatusChanged, event.EventType)
			assert.Equal(t, "PENDING", event.Payload["from"])
			assert.Equal(t, "POSTED", event.Payload["to"])

			return nil
		})
	tx.EXPECT().Commit(gomock.Any()).Return(nil)

	updated, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: "tx-1",
		GatewayRefID:  &ref,
		Status:        domain.StatusPosted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPosted, updated.Status)
	assert.Equal(t, &ref, updated.GatewayRefID)
}

func TestLifecycleUseCase_TerminalStatusesReject(t *testing.T) {
	for _, status := range []domain.TransactionStatus{domain.StatusPosted, domain.StatusReversed} {
		t.Run(string(status), func(t *testing.T) {
			uc, tx, txRepo, _ := newLifecycleWithMocks(t)

			txRepo.EXPECT().GetForUpdate(gomock.Any(), tx, "tx-1", nil).
				Return(&domain.Transaction{ID: "tx-1", Status: status}, nil)

			_, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
				TransactionID: "tx-1",
				Status:        domain.StatusFailed,
			})
			require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		})
	}
}

func TestLifecycleUseCase_SameStatusRefreshesReferenceOnly(t *testing.T) {
	uc, tx, txRepo, _ := newLifecycleWithMocks(t)
	ref := "gw-2"

	txRepo.EXPECT().GetForUpdate(gomock.Any(), tx, "tx-1", nil).
		Return(&domain.Transaction{ID: "tx-1", Status: domain.StatusPosted}, nil)
	txRepo.EXPECT().UpdateStatus(gomock.Any(), tx, "tx-1", domain.StatusPosted, &ref, gomock.Any()).Return(nil)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)

	updated, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: "tx-1",
		GatewayRefID:  &ref,
		Status:        domain.StatusPosted,
	})
	require.NoError(t, err)
	assert.Equal(t, "gw-2", *updated.GatewayRefID)
}

func TestLifecycleUseCase_KeepsExistingReference(t *testing.T) {
	uc, tx, txRepo, outboxRepo := newLifecycleWithMocks(t)
	existing := "gw-old"

	txRepo.EXPECT().GetForUpdate(gomock.Any(), tx, "tx-1", nil).
		Return(&domain.Transaction{ID: "tx-1", Status: domain.StatusPending, GatewayRefID: &existing}, nil)
	txRepo.EXPECT().UpdateStatus(gomock.Any(), tx, "tx-1", domain.StatusFailed, &existing, gomock.Any()).Return(nil)
	outboxRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)

	updated, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: "tx-1",
		Status:        domain.StatusFailed,
	})
	require.NoError(t, err)
	assert.Equal(t, "gw-old", *updated.GatewayRefID)
}

func TestLifecycleUseCase_TenantScopedLookup(t *testing.T) {
	uc, tx, txRepo, _ := newLifecycleWithMocks(t)
	tenant := "tenant-a"

	txRepo.EXPECT().GetForUpdate(gomock.Any(), tx, "tx-1", &tenant).Return(nil, domain.ErrTransactionNotFound)

	_, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: "tx-1",
		TenantID:      &tenant,
		Status:        domain.StatusPosted,
	})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestLifecycleUseCase_FailedCanBePosted(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")

	pending, err := e.posting.CreatePendingTransaction(context.Background(), usecase.CreatePendingInput{
		OwnerAccountID: "alice",
		Type:           domain.TransactionTypeDeposit,
		Currency:       "USD",
		AmountMinor:    100,
	})
	require.NoError(t, err)

	_, err = e.lifecycle.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: pending.ID,
		Status:        domain.StatusFailed,
	})
	require.NoError(t, err)

	posted, err := e.lifecycle.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: pending.ID,
		Status:        domain.StatusPosted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPosted, posted.Status)

	_, err = e.lifecycle.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: pending.ID,
		Status:        domain.StatusReversed,
	})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestLifecycleUseCase_RejectsUnknownStatus(t *testing.T) {
	uc := usecase.NewLifecycleUseCase(nil, nil, nil, nil, nil, zerolog.Nop())

	_, err := uc.UpdateTransactionStatus(context.Background(), usecase.UpdateStatusInput{
		TransactionID: "tx-1",
		Status:        "SETTLED",
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
