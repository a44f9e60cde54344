package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

func createPendingDeposit(t *testing.T, e *testEngine, owner string, gross int64, ref *string) *domain.Transaction {
	t.Helper()

	pending, err := e.posting.CreatePendingTransaction(context.Background(), usecase.CreatePendingInput{
		GatewayRefID:   ref,
		OwnerAccountID: owner,
		Type:           domain.TransactionTypeDeposit,
		Currency:       "USD",
		AmountMinor:    gross,
		Metadata: map[string]any{
			domain.MetaDepositFeeRate: "0.02",
			domain.MetaDepositVATRate: 0.15,
		},
	})
	require.NoError(t, err)

	return pending
}

func TestSettlementUseCase_FinalizeDeposit(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")
	ref := "ch_123"
	pending := createPendingDeposit(t, e, "alice", 10000, &ref)

	posted, err := e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPosted, posted.Status)
	assert.Equal(t, int64(10000), posted.AmountMinor)
	assert.Equal(t, pending.ID, posted.MetadataString(domain.MetaPendingTransactionID))
	assert.Equal(t, domain.EventDepositPostedWebhook, posted.MetadataString(domain.MetaEvent))
	require.NotNil(t, posted.IdempotencyKey)
	assert.Equal(t, usecase.DepositPostKeyPrefix+pending.ID, *posted.IdempotencyKey)

	assert.Equal(t, "9770", e.balance(t, "alice", "USD"))
	assert.Equal(t, "200", e.balance(t, testSystemAccounts.Revenue, "USD"))
	assert.Equal(t, "30", e.balance(t, testSystemAccounts.Tax, "USD"))
	assert.Equal(t, "-10000", e.balance(t, testSystemAccounts.ExternalCash, "USD"))

	updated, err := e.query.GetTransaction(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPosted, updated.Status)

	entries, err := e.query.GetTransactionEntries(context.Background(), posted.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestSettlementUseCase_FinalizeByTransactionIDUsesDefaultRates(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")

	pending, err := e.posting.CreatePendingTransaction(context.Background(), usecase.CreatePendingInput{
		OwnerAccountID: "alice",
		Type:           domain.TransactionTypeDeposit,
		Currency:       "USD",
		AmountMinor:    1234,
	})
	require.NoError(t, err)

	_, err = e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{TransactionID: pending.ID})
	require.NoError(t, err)

	// fee = round(1234*0.02) = 25, vat = round(25*0.15) = 4
	assert.Equal(t, "1205", e.balance(t, "alice", "USD"))
	assert.Equal(t, "25", e.balance(t, testSystemAccounts.Revenue, "USD"))
	assert.Equal(t, "4", e.balance(t, testSystemAccounts.Tax, "USD"))
}

func TestSettlementUseCase_RedeliveryReturnsOriginalPosting(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")
	ref := "ch_dup"
	pending := createPendingDeposit(t, e, "alice", 10000, &ref)

	first, err := e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.NoError(t, err)

	second, err := e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	third, err := e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{TransactionID: pending.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	assert.Equal(t, "9770", e.balance(t, "alice", "USD"))
}

func TestSettlementUseCase_PostingFailureMarksPendingFailed(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")
	ref := "ch_fail"
	pending := createPendingDeposit(t, e, "alice", 10000, &ref)

	_, err := e.accounts.SetFrozen(context.Background(), testSystemAccounts.ExternalCash, true)
	require.NoError(t, err)

	_, err = e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.ErrorIs(t, err, domain.ErrFinalizationFailed)
	require.ErrorIs(t, err, domain.ErrAccountFrozen)

	failed, err := e.query.GetTransaction(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, "0", e.balance(t, "alice", "USD"))
}

func TestSettlementUseCase_NegativeNetIsRejected(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")

	pending, err := e.posting.CreatePendingTransaction(context.Background(), usecase.CreatePendingInput{
		OwnerAccountID: "alice",
		Type:           domain.TransactionTypeDeposit,
		Currency:       "USD",
		AmountMinor:    100,
		Metadata:       map[string]any{domain.MetaDepositFeeRate: "1.5"},
	})
	require.NoError(t, err)

	_, err = e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{TransactionID: pending.ID})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	unchanged, err := e.query.GetTransaction(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, unchanged.Status)
}

func TestSettlementUseCase_ConcurrentDeliveryIsRejected(t *testing.T) {
	e := newTestEngine(t)
	e.createAccount(t, "alice")
	ref := "ch_locked"
	pending := createPendingDeposit(t, e, "alice", 10000, &ref)

	held, err := e.locker.Acquire(context.Background(), usecase.FinalizationLockPrefix+pending.ID, usecase.FinalizationLockTTL)
	require.NoError(t, err)
	require.True(t, held)

	_, err = e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.ErrorIs(t, err, domain.ErrFinalizationInProgress)
}

func TestSettlementUseCase_UnknownReference(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{ExternalRefID: "nope"})
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = e.settlement.FinalizeDeposit(context.Background(), usecase.FinalizeDepositInput{})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
