package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// memStore is an in-memory ledger store. Database transactions are
// serialized by txMu and undone on rollback; mu guards the maps against
// reads made outside a transaction.
type memStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	accounts     map[string]*domain.Account
	balances     map[string]*domain.Balance
	transactions map[string]*domain.Transaction
	txOrder      []string
	entries      []*domain.Entry
	outbox       []*domain.OutboxEvent
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[string]*domain.Account),
		balances:     make(map[string]*domain.Balance),
		transactions: make(map[string]*domain.Transaction),
	}
}

func balanceKey(accountID, currency string) string {
	return accountID + "|" + currency
}

func idempotencyMatches(t *domain.Transaction, tenantID *string, key string) bool {
	if t.IdempotencyKey == nil || *t.IdempotencyKey != key {
		return false
	}

	if tenantID == nil {
		return t.TenantID == nil
	}

	return t.TenantID != nil && *t.TenantID == *tenantID
}

type memTx struct {
	store *memStore
	undo  []func()
	done  bool
}

func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}

	t.done = true
	t.store.txMu.Unlock()

	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return nil
	}

	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()

	t.done = true
	t.store.txMu.Unlock()

	return nil
}

type memTxManager struct{ store *memStore }

func (m *memTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	m.store.txMu.Lock()

	return &memTx{store: m.store}, nil
}

type memAccountRepo struct{ store *memStore }

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.accounts[account.ID]; ok {
		return domain.ErrAccountExists
	}

	cp := *account
	r.store.accounts[account.ID] = &cp

	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	cp := *a

	return &cp, nil
}

func (r *memAccountRepo) GetByIDs(_ context.Context, _ usecase.Transaction, ids []string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Account

	for _, id := range ids {
		if a, ok := r.store.accounts[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *memAccountRepo) SetFrozen(_ context.Context, id string, frozen bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	a.Frozen = frozen

	return nil
}

type memBalanceRepo struct{ store *memStore }

func (r *memBalanceRepo) GetForUpdate(_ context.Context, _ usecase.Transaction, accountID, currency string) (*domain.Balance, error) {
	return r.Get(context.Background(), accountID, currency)
}

func (r *memBalanceRepo) Insert(_ context.Context, tx usecase.Transaction, balance *domain.Balance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := balanceKey(balance.AccountID, balance.Currency)
	cp := *balance
	r.store.balances[key] = &cp

	tx.(*memTx).record(func() { delete(r.store.balances, key) })

	return nil
}

func (r *memBalanceRepo) UpdateAmount(_ context.Context, tx usecase.Transaction, id string, amountMinor int64, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, b := range r.store.balances {
		if b.ID != id {
			continue
		}

		prevAmount, prevUpdated := b.AmountMinor, b.UpdatedAt
		b.AmountMinor = amountMinor
		b.UpdatedAt = updatedAt

		tx.(*memTx).record(func() {
			b.AmountMinor = prevAmount
			b.UpdatedAt = prevUpdated
		})

		return nil
	}

	return fmt.Errorf("balance %s not found", id)
}

func (r *memBalanceRepo) Get(_ context.Context, accountID, currency string) (*domain.Balance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.balances[balanceKey(accountID, currency)]
	if !ok {
		return nil, nil
	}

	cp := *b

	return &cp, nil
}

func (r *memBalanceRepo) GetLatest(_ context.Context, accountID string) (*domain.Balance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *domain.Balance

	for _, b := range r.store.balances {
		if b.AccountID != accountID {
			continue
		}

		if latest == nil || b.UpdatedAt.After(latest.UpdatedAt) {
			latest = b
		}
	}

	if latest == nil {
		return nil, nil
	}

	cp := *latest

	return &cp, nil
}

type memTransactionRepo struct{ store *memStore }

func (r *memTransactionRepo) Create(_ context.Context, tx usecase.Transaction, transaction *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if transaction.IdempotencyKey != nil {
		for _, existing := range r.store.transactions {
			if idempotencyMatches(existing, transaction.TenantID, *transaction.IdempotencyKey) {
				return domain.ErrDuplicateIdempotencyKey
			}
		}
	}

	cp := *transaction
	r.store.transactions[transaction.ID] = &cp
	r.store.txOrder = append(r.store.txOrder, transaction.ID)

	tx.(*memTx).record(func() {
		delete(r.store.transactions, transaction.ID)
		r.store.txOrder = r.store.txOrder[:len(r.store.txOrder)-1]
	})

	return nil
}

func (r *memTransactionRepo) LockIdempotencyKey(context.Context, usecase.Transaction, *string, string) error {
	return nil
}

func (r *memTransactionRepo) GetByIdempotencyKey(_ context.Context, _ usecase.Transaction, tenantID *string, key string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, t := range r.store.transactions {
		if idempotencyMatches(t, tenantID, key) {
			cp := *t
			return &cp, nil
		}
	}

	return nil, domain.ErrTransactionNotFound
}

func (r *memTransactionRepo) GetForUpdate(ctx context.Context, _ usecase.Transaction, id string, tenantID *string) (*domain.Transaction, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if tenantID != nil && (t.TenantID == nil || *t.TenantID != *tenantID) {
		return nil, domain.ErrTransactionNotFound
	}

	return t, nil
}

func (r *memTransactionRepo) UpdateStatus(_ context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, gatewayRefID *string, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	prev := *t
	t.Status = status
	t.GatewayRefID = gatewayRefID
	t.UpdatedAt = updatedAt

	tx.(*memTx).record(func() { *t = prev })

	return nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	cp := *t

	return &cp, nil
}

func (r *memTransactionRepo) GetByGatewayRef(_ context.Context, gatewayRefID string, status *domain.TransactionStatus) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, id := range r.store.txOrder {
		t := r.store.transactions[id]
		if t.GatewayRefID == nil || *t.GatewayRefID != gatewayRefID {
			continue
		}

		if status != nil && t.Status != *status {
			continue
		}

		cp := *t

		return &cp, nil
	}

	return nil, domain.ErrTransactionNotFound
}

func (r *memTransactionRepo) GetPendingByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.Status != domain.StatusPending {
		return nil, domain.ErrTransactionNotFound
	}

	return t, nil
}

func (r *memTransactionRepo) ListByOwner(_ context.Context, ownerAccountID string, limit, offset int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var owned []*domain.Transaction

	for i := len(r.store.txOrder) - 1; i >= 0; i-- {
		t := r.store.transactions[r.store.txOrder[i]]
		if t.OwnerAccountID != nil && *t.OwnerAccountID == ownerAccountID {
			cp := *t
			owned = append(owned, &cp)
		}
	}

	if offset >= len(owned) {
		return []*domain.Transaction{}, nil
	}

	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}

	return owned, nil
}

type memEntryRepo struct{ store *memStore }

func (r *memEntryRepo) CreateBatch(_ context.Context, tx usecase.Transaction, entries []*domain.Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n := len(r.store.entries)
	r.store.entries = append(r.store.entries, entries...)

	tx.(*memTx).record(func() { r.store.entries = r.store.entries[:n] })

	return nil
}

func (r *memEntryRepo) ListByTransaction(_ context.Context, transactionID string) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Entry

	for _, e := range r.store.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}

	return out, nil
}

type memOutboxRepo struct{ store *memStore }

func (r *memOutboxRepo) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	n := len(r.store.outbox)
	r.store.outbox = append(r.store.outbox, event)

	tx.(*memTx).record(func() { r.store.outbox = r.store.outbox[:n] })

	return nil
}

func (r *memOutboxRepo) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.OutboxEvent

	for _, e := range r.store.outbox {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}

	return out, nil
}

func (r *memOutboxRepo) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}

	return nil
}

func (r *memOutboxRepo) CountUnpublished(context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for _, e := range r.store.outbox {
		if !e.Published {
			n++
		}
	}

	return n, nil
}

func (r *memOutboxRepo) DeletePublished(context.Context, time.Time) error {
	return nil
}

type memLedgerRepo struct{ store *memStore }

func (r *memLedgerRepo) FindBalanceMismatches(context.Context) ([]usecase.BalanceMismatch, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	replayed := make(map[string]int64)
	for _, e := range r.store.entries {
		replayed[balanceKey(e.AccountID, e.Currency)] += e.Direction.Sign() * e.AmountMinor
	}

	var out []usecase.BalanceMismatch

	for key, b := range r.store.balances {
		if replayed[key] != b.AmountMinor {
			out = append(out, usecase.BalanceMismatch{
				AccountID:     b.AccountID,
				Currency:      b.Currency,
				StoredMinor:   b.AmountMinor,
				ReplayedMinor: replayed[key],
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })

	return out, nil
}

func (r *memLedgerRepo) TotalsByCurrency(context.Context) ([]usecase.CurrencyTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	byCurrency := make(map[string]*usecase.CurrencyTotals)
	for _, e := range r.store.entries {
		t, ok := byCurrency[e.Currency]
		if !ok {
			t = &usecase.CurrencyTotals{Currency: e.Currency}
			byCurrency[e.Currency] = t
		}

		if e.Direction == domain.DirectionDebit {
			t.TotalDebit += e.AmountMinor
		} else {
			t.TotalCredit += e.AmountMinor
		}
	}

	out := make([]usecase.CurrencyTotals, 0, len(byCurrency))
	for _, t := range byCurrency {
		out = append(out, *t)
	}

	return out, nil
}

type seqIDGenerator struct{ n atomic.Int64 }

func (g *seqIDGenerator) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

type fakeGateway struct {
	mu        sync.Mutex
	chargeErr error
	payoutErr error
	charges   []usecase.PaymentRequest
	payouts   []usecase.PaymentRequest
	// onCharge runs once, during the next charge and outside the mutex.
	onCharge func()
}

func (g *fakeGateway) Charge(_ context.Context, req usecase.PaymentRequest) (string, error) {
	g.mu.Lock()
	g.charges = append(g.charges, req)
	hook := g.onCharge
	g.onCharge = nil
	err := g.chargeErr
	g.mu.Unlock()

	if hook != nil {
		hook()
	}

	if err != nil {
		return "", err
	}

	return "ch_" + req.TransactionID, nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.charges)
}

func (g *fakeGateway) Payout(_ context.Context, req usecase.PaymentRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.payouts = append(g.payouts, req)
	if g.payoutErr != nil {
		return "", g.payoutErr
	}

	return "po_" + req.TransactionID, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == nil {
		l.held = make(map[string]bool)
	}

	if l.held[key] {
		return false, nil
	}

	l.held[key] = true

	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)

	return nil
}

var testSystemAccounts = usecase.SystemAccounts{
	Revenue:      "sys-revenue",
	Tax:          "sys-tax",
	ExternalCash: "sys-external-cash",
	Escrow:       "sys-escrow",
}

var (
	testDepositFees = domain.FeeSchedule{FeeRate: decimal.RequireFromString("0.02"), VATRate: decimal.RequireFromString("0.15")}
	testP2PFees     = domain.FeeSchedule{FeeRate: decimal.RequireFromString("0.01"), VATRate: decimal.RequireFromString("0.075")}
)

type testEngine struct {
	store      *memStore
	gateway    *fakeGateway
	locker     *fakeLocker
	accounts   *usecase.AccountUseCase
	posting    *usecase.PostingUseCase
	lifecycle  *usecase.LifecycleUseCase
	query      *usecase.QueryUseCase
	settlement *usecase.SettlementUseCase
	wallet     *usecase.WalletUseCase
	recon      *usecase.ReconciliationUseCase
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	store := newMemStore()
	idGen := &seqIDGenerator{}
	logger := zerolog.Nop()

	txManager := &memTxManager{store: store}
	accountRepo := &memAccountRepo{store: store}
	balanceRepo := &memBalanceRepo{store: store}
	txRepo := &memTransactionRepo{store: store}
	entryRepo := &memEntryRepo{store: store}
	outboxRepo := &memOutboxRepo{store: store}

	e := &testEngine{
		store:   store,
		gateway: &fakeGateway{},
		locker:  &fakeLocker{},
	}

	e.accounts = usecase.NewAccountUseCase(accountRepo, idGen, logger)
	e.posting = usecase.NewPostingUseCase(txManager, accountRepo, balanceRepo, txRepo, entryRepo, outboxRepo, idGen, nil, nil, logger)
	e.lifecycle = usecase.NewLifecycleUseCase(txManager, txRepo, outboxRepo, idGen, nil, logger)
	e.query = usecase.NewQueryUseCase(balanceRepo, txRepo, entryRepo)
	e.settlement = usecase.NewSettlementUseCase(e.posting, e.lifecycle, e.query, e.locker, testSystemAccounts, testDepositFees, nil, logger)
	e.wallet = usecase.NewWalletUseCase(e.posting, e.lifecycle, e.gateway, testSystemAccounts, testDepositFees, testP2PFees, logger)
	e.recon = usecase.NewReconciliationUseCase(&memLedgerRepo{store: store}, nil, logger)

	if err := e.accounts.EnsureSystemAccounts(context.Background(), testSystemAccounts); err != nil {
		t.Fatalf("failed to create system accounts: %v", err)
	}

	return e
}

func (e *testEngine) createAccount(t *testing.T, id string) {
	t.Helper()

	_, err := e.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		ID:   id,
		Type: domain.AccountTypeLiability,
	})
	if err != nil {
		t.Fatalf("failed to create account %s: %v", id, err)
	}
}

// fund credits accountID from external cash.
func (e *testEngine) fund(t *testing.T, accountID, currency string, amount int64) {
	t.Helper()

	_, err := e.posting.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		Type: "FUNDING",
		Entries: []domain.EntrySpec{
			{AccountID: testSystemAccounts.ExternalCash, Direction: domain.DirectionDebit, Currency: currency, AmountMinor: amount},
			{AccountID: accountID, Direction: domain.DirectionCredit, Currency: currency, AmountMinor: amount},
		},
	})
	if err != nil {
		t.Fatalf("failed to fund %s: %v", accountID, err)
	}
}

func (e *testEngine) balance(t *testing.T, accountID, currency string) string {
	t.Helper()

	b, err := e.query.GetAccountBalance(context.Background(), accountID, currency)
	if err != nil {
		t.Fatalf("failed to read balance of %s: %v", accountID, err)
	}

	return b
}

func (e *testEngine) transactionCount() int {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	return len(e.store.transactions)
}

func transfer(from, to, currency string, amount int64) []domain.EntrySpec {
	return []domain.EntrySpec{
		{AccountID: from, Direction: domain.DirectionDebit, Currency: currency, AmountMinor: amount},
		{AccountID: to, Direction: domain.DirectionCredit, Currency: currency, AmountMinor: amount},
	}
}
