package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/logger"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
)

// SystemAccounts are the platform accounts that take the other side of user flows.
type SystemAccounts struct {
	Revenue      string
	Tax          string
	ExternalCash string
	Escrow       string
}

// Validate requires every system account id.
func (s SystemAccounts) Validate() error {
	if s.Revenue == "" || s.Tax == "" || s.ExternalCash == "" || s.Escrow == "" {
		return fmt.Errorf("%w: system account ids must be configured", domain.ErrInvalidRequest)
	}

	return nil
}

// SettlementUseCase turns confirmed gateway payments into postings.
type SettlementUseCase struct {
	posting   *PostingUseCase
	lifecycle *LifecycleUseCase
	query     *QueryUseCase
	locker    Locker
	accounts  SystemAccounts
	fees      domain.FeeSchedule
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewSettlementUseCase creates a new SettlementUseCase.
// fees is used when a pending deposit carries no rates in its metadata.
// locker and m may be nil.
func NewSettlementUseCase(
	posting *PostingUseCase,
	lifecycle *LifecycleUseCase,
	query *QueryUseCase,
	locker Locker,
	accounts SystemAccounts,
	fees domain.FeeSchedule,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		posting:   posting,
		lifecycle: lifecycle,
		query:     query,
		locker:    locker,
		accounts:  accounts,
		fees:      fees,
		metrics:   m,
		logger:    logger.With().Str("component", "settlement").Logger(),
	}
}

// FinalizeDepositInput identifies the pending deposit a gateway confirmed.
// TransactionID takes precedence over ExternalRefID.
type FinalizeDepositInput struct {
	TransactionID string
	ExternalRefID string
}

// FinalizeDeposit posts a confirmed deposit: the gross amount leaves external
// cash, the owner is credited the net and fee and VAT go to revenue and tax.
// The pending transaction becomes POSTED on success and FAILED when the
// posting is rejected. Repeated deliveries for an already finalized deposit
// return the original posting.
func (uc *SettlementUseCase) FinalizeDeposit(ctx context.Context, input FinalizeDepositInput) (*domain.Transaction, error) {
	if input.TransactionID == "" && input.ExternalRefID == "" {
		return nil, fmt.Errorf("%w: transaction id or external reference is required", domain.ErrInvalidRequest)
	}

	pending, err := uc.findPending(ctx, input)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return uc.alreadyFinalized(ctx, input)
	}

	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, uc.logger)

	if uc.locker != nil {
		lockKey := FinalizationLockPrefix + pending.ID

		acquired, err := uc.locker.Acquire(ctx, lockKey, FinalizationLockTTL)

		switch {
		case err != nil:
			// The idempotency key still prevents a double posting.
			log.Warn().Err(err).Str("transaction_id", pending.ID).Msg("finalization lock unavailable")
		case !acquired:
			return nil, fmt.Errorf("%w: %s", domain.ErrFinalizationInProgress, pending.ID)
		default:
			defer func() {
				if err := uc.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
					log.Warn().Err(err).Str("transaction_id", pending.ID).Msg("failed to release finalization lock")
				}
			}()
		}
	}

	if pending.OwnerAccountID == nil || *pending.OwnerAccountID == "" {
		return nil, fmt.Errorf("%w: pending transaction %s has no owner account", domain.ErrInvalidRequest, pending.ID)
	}

	feeRate, err := domain.RateFromMetadata(pending.Metadata, domain.MetaDepositFeeRate, uc.fees.FeeRate)
	if err != nil {
		return nil, err
	}

	vatRate, err := domain.RateFromMetadata(pending.Metadata, domain.MetaDepositVATRate, uc.fees.VATRate)
	if err != nil {
		return nil, err
	}

	split, err := domain.FeeSchedule{FeeRate: feeRate, VATRate: vatRate}.SplitInclusive(pending.AmountMinor)
	if err != nil {
		return nil, err
	}

	gatewayRef := pending.GatewayRefID
	if input.ExternalRefID != "" {
		gatewayRef = stringPtr(input.ExternalRefID)
	}

	txType := pending.Type
	if txType == "" {
		txType = domain.TransactionTypeDeposit
	}

	posted, err := uc.posting.CreateTransaction(ctx, CreateTransactionInput{
		TenantID:       pending.TenantID,
		OwnerAccountID: pending.OwnerAccountID,
		GatewayRefID:   gatewayRef,
		IdempotencyKey: stringPtr(DepositPostKeyPrefix + pending.ID),
		Type:           txType,
		Status:         domain.StatusPosted,
		Entries:        uc.depositEntries(pending, split),
		Metadata: map[string]any{
			domain.MetaEvent:                domain.EventDepositPostedWebhook,
			domain.MetaPendingTransactionID: pending.ID,
		},
	})
	if err != nil {
		uc.lifecycle.MarkFailed(ctx, pending.ID, pending.TenantID, gatewayRef)
		uc.recordFinalization("failed")

		log.Error().Err(err).Str("transaction_id", pending.ID).Msg("deposit finalization failed")

		return nil, fmt.Errorf("%w: %w", domain.ErrFinalizationFailed, err)
	}

	// The posting is committed. If this update fails the pending record stays
	// PENDING and a redelivery replays the posting and retries the update.
	if _, err := uc.lifecycle.UpdateTransactionStatus(ctx, UpdateStatusInput{
		TransactionID: pending.ID,
		TenantID:      pending.TenantID,
		GatewayRefID:  gatewayRef,
		Status:        domain.StatusPosted,
	}); err != nil {
		return nil, err
	}

	uc.recordFinalization("posted")

	log.Info().
		Str("pending_id", pending.ID).
		Str("transaction_id", posted.ID).
		Int64("net_minor", split.Net).
		Int64("fee_minor", split.Fee).
		Int64("vat_minor", split.VAT).
		Msg("deposit finalized")

	return posted, nil
}

func (uc *SettlementUseCase) findPending(ctx context.Context, input FinalizeDepositInput) (*domain.Transaction, error) {
	if input.TransactionID != "" {
		return uc.query.FindPendingTransactionByID(ctx, input.TransactionID)
	}

	return uc.query.FindPendingTransactionByRefID(ctx, input.ExternalRefID)
}

// alreadyFinalized resolves a delivery whose pending transaction is no longer PENDING.
func (uc *SettlementUseCase) alreadyFinalized(ctx context.Context, input FinalizeDepositInput) (*domain.Transaction, error) {
	var (
		original *domain.Transaction
		err      error
	)

	if input.TransactionID != "" {
		original, err = uc.query.GetTransaction(ctx, input.TransactionID)
	} else {
		original, err = uc.query.FindTransactionByRefID(ctx, input.ExternalRefID)
	}

	if err != nil {
		return nil, err
	}

	if original.Status != domain.StatusPosted {
		return nil, fmt.Errorf("%w: transaction %s is %s", domain.ErrInvalidStateTransition, original.ID, original.Status)
	}

	posted, err := uc.query.FindByIdempotencyKey(ctx, original.TenantID, DepositPostKeyPrefix+original.ID)
	if err != nil {
		return nil, err
	}

	if posted == nil {
		// original is itself the deposit posting found by its reference.
		if original.MetadataString(domain.MetaPendingTransactionID) != "" {
			uc.recordFinalization("replayed")

			return original, nil
		}

		return nil, fmt.Errorf("%w: no pending deposit for %s", domain.ErrTransactionNotFound, original.ID)
	}

	uc.recordFinalization("replayed")

	return posted, nil
}

func (uc *SettlementUseCase) depositEntries(pending *domain.Transaction, split domain.FeeSplit) []domain.EntrySpec {
	entries := []domain.EntrySpec{
		{
			AccountID:   uc.accounts.ExternalCash,
			Direction:   domain.DirectionDebit,
			Currency:    pending.Currency,
			AmountMinor: split.Gross,
			Description: "Deposit received",
		},
		{
			AccountID:   *pending.OwnerAccountID,
			Direction:   domain.DirectionCredit,
			Currency:    pending.Currency,
			AmountMinor: split.Net,
			Description: "Deposit credited",
		},
	}

	if split.Fee > 0 {
		entries = append(entries, domain.EntrySpec{
			AccountID:   uc.accounts.Revenue,
			Direction:   domain.DirectionCredit,
			Currency:    pending.Currency,
			AmountMinor: split.Fee,
			Description: "Deposit service fee",
		})
	}

	if split.VAT > 0 {
		entries = append(entries, domain.EntrySpec{
			AccountID:   uc.accounts.Tax,
			Direction:   domain.DirectionCredit,
			Currency:    pending.Currency,
			AmountMinor: split.VAT,
			Description: "VAT on deposit fee",
		})
	}

	return entries
}

func (uc *SettlementUseCase) recordFinalization(result string) {
	if uc.metrics != nil {
		uc.metrics.Finalizations.WithLabelValues(result).Inc()
	}
}
