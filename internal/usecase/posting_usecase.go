package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
)

// PostingUseCase atomically records balanced sets of entries.
type PostingUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txRepo      TransactionRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	mutator     *BalanceMutator
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPostingUseCase creates a new PostingUseCase.
// retrier and m may be nil.
func NewPostingUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	balanceRepo BalanceRepository,
	txRepo TransactionRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *PostingUseCase {
	return &PostingUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		mutator:     NewBalanceMutator(balanceRepo, idGen),
		idGen:       idGen,
		retrier:     retrier,
		metrics:     m,
		logger:      logger.With().Str("component", "posting").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateTransactionInput represents input for posting a transaction.
type CreateTransactionInput struct {
	Metadata       map[string]any
	TenantID       *string
	OwnerAccountID *string
	GatewayRefID   *string
	IdempotencyKey *string
	Type           string
	// Status defaults to POSTED.
	Status  domain.TransactionStatus
	Entries []domain.EntrySpec
}

// PostingResult is a committed or replayed transaction.
type PostingResult struct {
	Transaction *domain.Transaction
	// Replayed is true when the idempotency key matched an existing transaction
	// and nothing was written.
	Replayed bool
}

// CreateTransaction posts input and returns the resulting transaction.
func (uc *PostingUseCase) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, error) {
	result, err := uc.Post(ctx, input)
	if err != nil {
		return nil, err
	}

	return result.Transaction, nil
}

// Post validates input, applies every balance delta under row locks and
// persists the transaction with its entries in one database transaction.
func (uc *PostingUseCase) Post(ctx context.Context, input CreateTransactionInput) (*PostingResult, error) {
	start := time.Now()

	if input.Status == "" {
		input.Status = domain.StatusPosted
	}

	if !input.Status.Valid() {
		return nil, uc.reject(fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, input.Status))
	}

	if err := validateType(input.Type); err != nil {
		return nil, uc.reject(err)
	}

	totals, err := domain.ValidateEntries(input.Entries)
	if err != nil {
		return nil, uc.reject(err)
	}

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, uc.reject(err)
	}

	deltas, err := domain.AggregateDeltas(input.Entries)
	if err != nil {
		return nil, uc.reject(err)
	}

	input.IdempotencyKey = normalizeKey(input.IdempotencyKey)
	tenantID := resolveTenant(input.TenantID, input.Entries)

	var result *PostingResult

	op := func() error {
		r, err := uc.post(ctx, input, tenantID, totals, deltas)
		if err != nil {
			return err
		}

		result = r

		return nil
	}

	err = uc.run(ctx, op)
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		// A concurrent request with the same key committed first.
		err = uc.run(ctx, op)
	}

	if err != nil {
		return nil, uc.reject(err)
	}

	uc.observe(result, start)

	return result, nil
}

func (uc *PostingUseCase) post(
	ctx context.Context,
	input CreateTransactionInput,
	tenantID *string,
	totals domain.PostingTotals,
	deltas []domain.BalanceDelta,
) (*PostingResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}

	defer func() { _ = tx.Rollback(txCtx) }()

	if input.IdempotencyKey != nil {
		existing, err := uc.lookupKey(txCtx, tx, tenantID, *input.IdempotencyKey)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return &PostingResult{Transaction: existing, Replayed: true}, nil
		}
	}

	resolved, err := uc.resolveAccounts(txCtx, tx, deltas)
	if err != nil {
		return nil, err
	}

	// Deltas are sorted by (account, currency) so concurrent postings lock rows in the same order.
	for _, delta := range resolved {
		if err := uc.mutator.ApplyDelta(txCtx, tx, delta, tenantID); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	transaction := &domain.Transaction{
		ID:             uc.idGen.Generate(),
		TenantID:       tenantID,
		OwnerAccountID: input.OwnerAccountID,
		GatewayRefID:   input.GatewayRefID,
		IdempotencyKey: input.IdempotencyKey,
		Type:           input.Type,
		Currency:       totals.Currency,
		Status:         input.Status,
		AmountMinor:    totals.TotalDebit,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.txRepo.Create(txCtx, tx, transaction); err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(input.Entries))
	for _, spec := range input.Entries {
		entryTenant := spec.TenantID
		if entryTenant == nil {
			entryTenant = tenantID
		}

		entries = append(entries, &domain.Entry{
			ID:            uc.idGen.Generate(),
			TenantID:      entryTenant,
			TransactionID: transaction.ID,
			AccountID:     spec.AccountID,
			Direction:     spec.Direction,
			Currency:      spec.Currency,
			Description:   spec.Description,
			AmountMinor:   spec.AmountMinor,
			CreatedAt:     now,
		})
	}

	if err := uc.entryRepo.CreateBatch(txCtx, tx, entries); err != nil {
		return nil, err
	}

	event := newOutboxEvent(uc.idGen, transaction.ID, domain.EventTypeTransactionPosted, domain.TransactionPostedEvent{
		TransactionID: transaction.ID,
		Type:          transaction.Type,
		Status:        string(transaction.Status),
		Currency:      transaction.Currency,
		AmountMinor:   strconv.FormatInt(transaction.AmountMinor, 10),
		Entries:       len(entries),
	}, now)

	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &PostingResult{Transaction: transaction}, nil
}

// CreatePendingInput represents input for opening a pending transaction.
type CreatePendingInput struct {
	Metadata       map[string]any
	TenantID       *string
	GatewayRefID   *string
	IdempotencyKey *string
	OwnerAccountID string
	Type           string
	Currency       string
	AmountMinor    int64
}

// CreatePendingTransaction records a PENDING transaction without entries.
// Balances are untouched until the transaction is finalized.
func (uc *PostingUseCase) CreatePendingTransaction(ctx context.Context, input CreatePendingInput) (*domain.Transaction, error) {
	result, err := uc.CreatePending(ctx, input)
	if err != nil {
		return nil, err
	}

	return result.Transaction, nil
}

// CreatePending is CreatePendingTransaction with replay information.
func (uc *PostingUseCase) CreatePending(ctx context.Context, input CreatePendingInput) (*PostingResult, error) {
	if err := validateType(input.Type); err != nil {
		return nil, uc.reject(err)
	}

	if input.OwnerAccountID == "" {
		return nil, uc.reject(fmt.Errorf("%w: owner account is required", domain.ErrInvalidRequest))
	}

	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, uc.reject(err)
	}

	if input.AmountMinor <= 0 {
		return nil, uc.reject(fmt.Errorf("%w: amount must be positive", domain.ErrInvalidRequest))
	}

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return nil, uc.reject(err)
	}

	input.IdempotencyKey = normalizeKey(input.IdempotencyKey)

	var result *PostingResult

	op := func() error {
		r, err := uc.createPending(ctx, input)
		if err != nil {
			return err
		}

		result = r

		return nil
	}

	err := uc.run(ctx, op)
	if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		err = uc.run(ctx, op)
	}

	if err != nil {
		return nil, uc.reject(err)
	}

	if uc.metrics != nil {
		if result.Replayed {
			uc.metrics.PostingReplays.Inc()
		} else {
			uc.metrics.PendingCreated.Inc()
		}
	}

	return result, nil
}

func (uc *PostingUseCase) createPending(ctx context.Context, input CreatePendingInput) (*PostingResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}

	defer func() { _ = tx.Rollback(txCtx) }()

	if input.IdempotencyKey != nil {
		existing, err := uc.lookupKey(txCtx, tx, input.TenantID, *input.IdempotencyKey)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			return &PostingResult{Transaction: existing, Replayed: true}, nil
		}
	}

	accounts, err := uc.accountRepo.GetByIDs(txCtx, tx, []string{input.OwnerAccountID})
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, input.OwnerAccountID)
	}

	now := uc.now()
	owner := input.OwnerAccountID
	transaction := &domain.Transaction{
		ID:             uc.idGen.Generate(),
		TenantID:       input.TenantID,
		OwnerAccountID: &owner,
		GatewayRefID:   input.GatewayRefID,
		IdempotencyKey: input.IdempotencyKey,
		Type:           input.Type,
		Currency:       input.Currency,
		Status:         domain.StatusPending,
		AmountMinor:    input.AmountMinor,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.txRepo.Create(txCtx, tx, transaction); err != nil {
		return nil, err
	}

	event := newOutboxEvent(uc.idGen, transaction.ID, domain.EventTypeTransactionPending, domain.TransactionPostedEvent{
		TransactionID: transaction.ID,
		Type:          transaction.Type,
		Status:        string(transaction.Status),
		Currency:      transaction.Currency,
		AmountMinor:   strconv.FormatInt(transaction.AmountMinor, 10),
	}, now)

	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &PostingResult{Transaction: transaction}, nil
}

// lookupKey serializes requests sharing an idempotency key and returns the
// transaction already recorded under it, if any.
func (uc *PostingUseCase) lookupKey(ctx context.Context, tx Transaction, tenantID *string, key string) (*domain.Transaction, error) {
	if err := uc.txRepo.LockIdempotencyKey(ctx, tx, tenantID, key); err != nil {
		return nil, err
	}

	existing, err := uc.txRepo.GetByIdempotencyKey(ctx, tx, tenantID, key)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return existing, nil
}

// resolveAccounts checks that every touched account exists and may take its
// delta, and copies each account's overdraft policy onto its deltas.
func (uc *PostingUseCase) resolveAccounts(ctx context.Context, tx Transaction, deltas []domain.BalanceDelta) ([]domain.BalanceDelta, error) {
	ids := make([]string, 0, len(deltas))
	for _, d := range deltas {
		if len(ids) == 0 || ids[len(ids)-1] != d.AccountID {
			ids = append(ids, d.AccountID)
		}
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	resolved := make([]domain.BalanceDelta, len(deltas))
	for i, d := range deltas {
		account := byID[d.AccountID]
		if account == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, d.AccountID)
		}

		if d.Delta < 0 {
			if err := account.CanDebit(); err != nil {
				return nil, fmt.Errorf("%w: %s", err, d.AccountID)
			}
		}

		d.AllowNegative = account.AllowNegativeBalance
		resolved[i] = d
	}

	return resolved, nil
}

func (uc *PostingUseCase) run(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}

	return uc.retrier.Retry(ctx, op)
}

// reject records a failed posting and classifies store failures.
func (uc *PostingUseCase) reject(err error) error {
	err = classifyError(err)

	if uc.metrics != nil {
		uc.metrics.PostingRejections.WithLabelValues(metrics.RejectionReason(err)).Inc()
	}

	if errors.Is(err, domain.ErrPersistence) {
		uc.logger.Error().Err(err).Msg("posting failed")
	} else {
		uc.logger.Debug().Err(err).Msg("posting rejected")
	}

	return err
}

func (uc *PostingUseCase) observe(result *PostingResult, start time.Time) {
	if result.Replayed {
		uc.logger.Debug().
			Str("transaction_id", result.Transaction.ID).
			Msg("idempotent replay")
	} else {
		uc.logger.Info().
			Str("transaction_id", result.Transaction.ID).
			Str("type", result.Transaction.Type).
			Str("status", string(result.Transaction.Status)).
			Int64("amount_minor", result.Transaction.AmountMinor).
			Msg("transaction posted")
	}

	if uc.metrics == nil {
		return
	}

	if result.Replayed {
		uc.metrics.PostingReplays.Inc()

		return
	}

	uc.metrics.PostingsTotal.WithLabelValues(result.Transaction.Type, string(result.Transaction.Status)).Inc()
	uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	uc.metrics.PostingAmount.Observe(float64(result.Transaction.AmountMinor))
}
