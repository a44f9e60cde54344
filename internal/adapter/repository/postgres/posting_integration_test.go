package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/postingledger/internal/adapter/repository/postgres"
	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
	"github.com/iho/postingledger/internal/testutil"
	"github.com/iho/postingledger/internal/usecase"
)

var systemAccounts = usecase.SystemAccounts{
	Revenue:      "sys-revenue",
	Tax:          "sys-tax",
	ExternalCash: "sys-external-cash",
	Escrow:       "sys-escrow",
}

type pgEngine struct {
	accounts   *usecase.AccountUseCase
	posting    *usecase.PostingUseCase
	lifecycle  *usecase.LifecycleUseCase
	query      *usecase.QueryUseCase
	settlement *usecase.SettlementUseCase
	recon      *usecase.ReconciliationUseCase
}

func newPgEngine(t *testing.T) *pgEngine {
	t.Helper()

	db := testutil.NewTestDB(t)
	ctx := context.Background()
	db.TruncateAll(ctx)

	pool := db.Pool
	logger := zerolog.Nop()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	idGen := postgres.NewULIDGenerator()
	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	balanceRepo := postgres.NewBalanceRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)

	e := &pgEngine{}
	e.accounts = usecase.NewAccountUseCase(accountRepo, idGen, logger)
	e.posting = usecase.NewPostingUseCase(txManager, accountRepo, balanceRepo, txRepo, entryRepo, outboxRepo, idGen, postgres.NewRetrier(logger), m, logger)
	e.lifecycle = usecase.NewLifecycleUseCase(txManager, txRepo, outboxRepo, idGen, m, logger)
	e.query = usecase.NewQueryUseCase(balanceRepo, txRepo, entryRepo)
	e.settlement = usecase.NewSettlementUseCase(e.posting, e.lifecycle, e.query, noLock{}, systemAccounts, domain.FeeSchedule{
		FeeRate: decimal.RequireFromString("0.02"),
		VATRate: decimal.RequireFromString("0.15"),
	}, m, logger)
	e.recon = usecase.NewReconciliationUseCase(postgres.NewLedgerRepository(pool), m, logger)

	require.NoError(t, e.accounts.EnsureSystemAccounts(ctx, systemAccounts))

	return e
}

type noLock struct{}

func (noLock) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (noLock) Release(context.Context, string) error                        { return nil }

func (e *pgEngine) open(t *testing.T, id string, fundMinor int64) {
	t.Helper()

	_, err := e.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{ID: id, Type: domain.AccountTypeLiability})
	require.NoError(t, err)

	if fundMinor == 0 {
		return
	}

	_, err = e.posting.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		Type: "FUNDING",
		Entries: []domain.EntrySpec{
			{AccountID: systemAccounts.ExternalCash, Direction: domain.DirectionDebit, Currency: "USD", AmountMinor: fundMinor},
			{AccountID: id, Direction: domain.DirectionCredit, Currency: "USD", AmountMinor: fundMinor},
		},
	})
	require.NoError(t, err)
}

func TestPostgresConcurrentDebitsNeverOverdraw(t *testing.T) {
	e := newPgEngine(t)
	ctx := context.Background()
	e.open(t, "alice", 100)
	e.open(t, "bob", 0)

	const workers = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()

			_, err := e.posting.CreateTransaction(ctx, usecase.CreateTransactionInput{
				Type: "TRANSFER",
				Entries: []domain.EntrySpec{
					{AccountID: "alice", Direction: domain.DirectionDebit, Currency: "USD", AmountMinor: 10},
					{AccountID: "bob", Direction: domain.DirectionCredit, Currency: "USD", AmountMinor: 10},
				},
			})

			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(10), rejected.Load())

	balance, err := e.query.GetAccountBalance(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0", balance)

	require.NoError(t, e.recon.CheckLedgerConsistency(ctx))
}

func TestPostgresConcurrentSameIdempotencyKey(t *testing.T) {
	e := newPgEngine(t)
	ctx := context.Background()
	e.open(t, "alice", 1000)
	e.open(t, "bob", 0)

	const workers = 10
	key := "pay-42"
	ids := make([]string, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		go func() {
			defer wg.Done()

			result, err := e.posting.Post(ctx, usecase.CreateTransactionInput{
				IdempotencyKey: &key,
				Type:           "TRANSFER",
				Entries: []domain.EntrySpec{
					{AccountID: "alice", Direction: domain.DirectionDebit, Currency: "USD", AmountMinor: 100},
					{AccountID: "bob", Direction: domain.DirectionCredit, Currency: "USD", AmountMinor: 100},
				},
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids[i] = result.Transaction.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	balance, err := e.query.GetAccountBalance(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.Equal(t, "900", balance)
}

func TestPostgresDepositSettlement(t *testing.T) {
	e := newPgEngine(t)
	ctx := context.Background()
	e.open(t, "alice", 0)

	ref := "ch_abc"
	pending, err := e.posting.CreatePendingTransaction(ctx, usecase.CreatePendingInput{
		GatewayRefID:   &ref,
		OwnerAccountID: "alice",
		Type:           domain.TransactionTypeDeposit,
		Currency:       "USD",
		AmountMinor:    10000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, pending.Status)

	posted, err := e.settlement.FinalizeDeposit(ctx, usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.NoError(t, err)

	again, err := e.settlement.FinalizeDeposit(ctx, usecase.FinalizeDepositInput{ExternalRefID: ref})
	require.NoError(t, err)
	assert.Equal(t, posted.ID, again.ID)

	balance, err := e.query.GetAccountBalance(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.Equal(t, "9770", balance)

	entries, err := e.query.GetTransactionEntries(ctx, posted.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	original, err := e.query.GetTransaction(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPosted, original.Status)

	report, err := e.recon.VerifyBalances(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}
