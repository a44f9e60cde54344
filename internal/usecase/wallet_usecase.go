package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/domain"
)

// WalletUseCase composes postings for user-facing money movements.
type WalletUseCase struct {
	posting     *PostingUseCase
	lifecycle   *LifecycleUseCase
	gateway     PaymentGateway
	accounts    SystemAccounts
	depositFees domain.FeeSchedule
	p2pFees     domain.FeeSchedule
	logger      zerolog.Logger
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	posting *PostingUseCase,
	lifecycle *LifecycleUseCase,
	gateway PaymentGateway,
	accounts SystemAccounts,
	depositFees domain.FeeSchedule,
	p2pFees domain.FeeSchedule,
	logger zerolog.Logger,
) *WalletUseCase {
	return &WalletUseCase{
		posting:     posting,
		lifecycle:   lifecycle,
		gateway:     gateway,
		accounts:    accounts,
		depositFees: depositFees,
		p2pFees:     p2pFees,
		logger:      logger.With().Str("component", "wallet").Logger(),
	}
}

// DepositInput represents input for starting a deposit.
type DepositInput struct {
	Metadata        map[string]any
	TenantID        *string
	IdempotencyKey  *string
	Fees            *domain.FeeSchedule
	AccountID       string
	Currency        string
	PaymentMethodID string
	GrossMinor      int64
}

// Deposit opens a PENDING deposit and charges the payment method. The fee
// schedule is stored on the pending transaction and applied when the
// gateway confirms the payment.
func (uc *WalletUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.Transaction, error) {
	fees := uc.depositFees
	if input.Fees != nil {
		fees = *input.Fees
	}

	if _, err := fees.SplitInclusive(input.GrossMinor); err != nil {
		return nil, err
	}

	result, err := uc.posting.CreatePending(ctx, CreatePendingInput{
		TenantID:       input.TenantID,
		IdempotencyKey: input.IdempotencyKey,
		OwnerAccountID: input.AccountID,
		Type:           domain.TransactionTypeDeposit,
		Currency:       input.Currency,
		AmountMinor:    input.GrossMinor,
		Metadata: copyMetadata(input.Metadata, map[string]any{
			domain.MetaEvent:          domain.EventDepositPending,
			domain.MetaDepositFeeRate: fees.FeeRate.String(),
			domain.MetaDepositVATRate: fees.VATRate.String(),
		}),
	})
	if err != nil {
		return nil, err
	}

	pending := result.Transaction

	// Only the request that created the pending deposit charges the gateway.
	// A replay of a PENDING deposit sees a charge that is settled or still in flight.
	if result.Replayed {
		switch pending.Status {
		case domain.StatusFailed, domain.StatusReversed:
			return nil, fmt.Errorf("%w: deposit %s has already failed", domain.ErrInvalidStateTransition, pending.ID)
		default:
			return pending, nil
		}
	}

	ref, err := uc.gateway.Charge(ctx, PaymentRequest{
		TransactionID:   pending.ID,
		PaymentMethodID: input.PaymentMethodID,
		Currency:        input.Currency,
		AmountMinor:     input.GrossMinor,
	})
	if err != nil {
		uc.lifecycle.MarkFailed(ctx, pending.ID, pending.TenantID, nil)
		uc.logger.Error().Err(err).Str("transaction_id", pending.ID).Msg("deposit charge failed")

		return nil, fmt.Errorf("%w: %w", domain.ErrGatewayFailure, err)
	}

	return uc.lifecycle.UpdateTransactionStatus(ctx, UpdateStatusInput{
		TransactionID: pending.ID,
		TenantID:      pending.TenantID,
		GatewayRefID:  stringPtr(ref),
		Status:        domain.StatusPending,
	})
}

// WithdrawInput represents input for a withdrawal to an external bank account.
type WithdrawInput struct {
	Metadata       map[string]any
	TenantID       *string
	IdempotencyKey *string
	AccountID      string
	Currency       string
	BankAccountID  string
	NetMinor       int64
	FeeMinor       int64
	VATMinor       int64
}

// Withdraw debits the user for net + fee + VAT as a PENDING posting and
// pays out the net amount. A failed payout marks the posting FAILED and
// posts a mirror-image reversal.
func (uc *WalletUseCase) Withdraw(ctx context.Context, input WithdrawInput) (*domain.Transaction, error) {
	if input.NetMinor <= 0 || input.FeeMinor < 0 || input.VATMinor < 0 {
		return nil, fmt.Errorf("%w: withdrawal amounts must be positive", domain.ErrInvalidRequest)
	}

	if input.BankAccountID == "" {
		return nil, fmt.Errorf("%w: bank account is required", domain.ErrInvalidRequest)
	}

	gross := input.NetMinor + input.FeeMinor + input.VATMinor
	if gross < input.NetMinor {
		return nil, fmt.Errorf("%w: amount overflow", domain.ErrInvalidRequest)
	}

	split := domain.FeeSplit{Gross: gross, Net: input.NetMinor, Fee: input.FeeMinor, VAT: input.VATMinor}

	entries := []domain.EntrySpec{
		{
			AccountID:   input.AccountID,
			Direction:   domain.DirectionDebit,
			Currency:    input.Currency,
			AmountMinor: split.Gross,
			Description: "Withdrawal",
		},
		{
			AccountID:   uc.accounts.ExternalCash,
			Direction:   domain.DirectionCredit,
			Currency:    input.Currency,
			AmountMinor: split.Net,
			Description: "Withdrawal payout",
		},
	}
	entries = append(entries, uc.feeEntries(input.Currency, split, "Withdrawal")...)

	result, err := uc.posting.Post(ctx, CreateTransactionInput{
		TenantID:       input.TenantID,
		OwnerAccountID: stringPtr(input.AccountID),
		IdempotencyKey: input.IdempotencyKey,
		Type:           domain.TransactionTypeWithdrawal,
		Status:         domain.StatusPending,
		Entries:        entries,
		Metadata: copyMetadata(input.Metadata, map[string]any{
			domain.MetaEvent:  domain.EventWithdrawal,
			"netAmountMinor":  split.Net,
			"serviceFeeMinor": split.Fee,
			"vatAmountMinor":  split.VAT,
		}),
	})
	if err != nil {
		return nil, err
	}

	withdrawal := result.Transaction

	if result.Replayed {
		switch withdrawal.Status {
		case domain.StatusFailed, domain.StatusReversed:
			return nil, fmt.Errorf("%w: withdrawal %s has already failed", domain.ErrInvalidStateTransition, withdrawal.ID)
		default:
			// POSTED is done and PENDING has a payout in flight.
			return withdrawal, nil
		}
	}

	ref, err := uc.gateway.Payout(ctx, PaymentRequest{
		TransactionID:   withdrawal.ID,
		PaymentMethodID: input.BankAccountID,
		Currency:        input.Currency,
		AmountMinor:     split.Net,
	})
	if err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", withdrawal.ID).Msg("withdrawal payout failed")

		return nil, errors.Join(fmt.Errorf("%w: %w", domain.ErrGatewayFailure, err), uc.reverse(ctx, withdrawal, entries))
	}

	return uc.lifecycle.UpdateTransactionStatus(ctx, UpdateStatusInput{
		TransactionID: withdrawal.ID,
		TenantID:      withdrawal.TenantID,
		GatewayRefID:  stringPtr(ref),
		Status:        domain.StatusPosted,
	})
}

// reverse marks a withdrawal FAILED and returns the funds with mirrored entries.
func (uc *WalletUseCase) reverse(ctx context.Context, withdrawal *domain.Transaction, entries []domain.EntrySpec) error {
	uc.lifecycle.MarkFailed(ctx, withdrawal.ID, withdrawal.TenantID, nil)

	mirrored := make([]domain.EntrySpec, len(entries))
	for i, e := range entries {
		e.Direction = opposite(e.Direction)
		e.Description = "Reversal: " + e.Description
		mirrored[i] = e
	}

	_, err := uc.posting.CreateTransaction(ctx, CreateTransactionInput{
		TenantID:       withdrawal.TenantID,
		OwnerAccountID: withdrawal.OwnerAccountID,
		IdempotencyKey: stringPtr(WithdrawalReversalKeyPrefix + withdrawal.ID),
		Type:           domain.TransactionTypeReversal,
		Status:         domain.StatusPosted,
		Entries:        mirrored,
		Metadata: map[string]any{
			domain.MetaEvent:                 domain.EventWithdrawalReversal,
			domain.MetaReversedTransactionID: withdrawal.ID,
		},
	})
	if err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", withdrawal.ID).Msg("withdrawal reversal failed")

		return fmt.Errorf("reverse withdrawal %s: %w", withdrawal.ID, err)
	}

	return nil
}

// TransferInput represents input for a peer-to-peer transfer.
type TransferInput struct {
	Metadata           map[string]any
	TenantID           *string
	IdempotencyKey     *string
	Fees               *domain.FeeSchedule
	SenderAccountID    string
	RecipientAccountID string
	Currency           string
	AmountMinor        int64
}

// TransferP2P moves the principal between two users. Fee and VAT are
// charged to the sender on top of the principal.
func (uc *WalletUseCase) TransferP2P(ctx context.Context, input TransferInput) (*domain.Transaction, error) {
	if input.SenderAccountID == input.RecipientAccountID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", domain.ErrInvalidRequest)
	}

	if input.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidRequest)
	}

	fees := uc.p2pFees
	if input.Fees != nil {
		fees = *input.Fees
	}

	split, err := fees.SplitOnTop(input.AmountMinor)
	if err != nil {
		return nil, err
	}

	entries := []domain.EntrySpec{
		{
			AccountID:   input.SenderAccountID,
			Direction:   domain.DirectionDebit,
			Currency:    input.Currency,
			AmountMinor: split.Gross,
			Description: "P2P transfer sent",
		},
		{
			AccountID:   input.RecipientAccountID,
			Direction:   domain.DirectionCredit,
			Currency:    input.Currency,
			AmountMinor: split.Net,
			Description: "P2P transfer received",
		},
	}
	entries = append(entries, uc.feeEntries(input.Currency, split, "P2P transfer")...)

	return uc.posting.CreateTransaction(ctx, CreateTransactionInput{
		TenantID:       input.TenantID,
		OwnerAccountID: stringPtr(input.SenderAccountID),
		IdempotencyKey: input.IdempotencyKey,
		Type:           domain.TransactionTypeP2PTransfer,
		Entries:        entries,
		Metadata: copyMetadata(input.Metadata, map[string]any{
			domain.MetaEvent:     domain.EventP2PTransfer,
			"recipientAccountId": input.RecipientAccountID,
			"serviceFeeMinor":    split.Fee,
			"vatAmountMinor":     split.VAT,
		}),
	})
}

// EscrowInput represents input for funding or releasing escrow.
type EscrowInput struct {
	Metadata       map[string]any
	TenantID       *string
	IdempotencyKey *string
	AccountID      string
	EscrowRefID    string
	Currency       string
	AmountMinor    int64
}

// FundEscrow moves funds from a user account into the escrow holding account.
func (uc *WalletUseCase) FundEscrow(ctx context.Context, input EscrowInput) (*domain.Transaction, error) {
	return uc.escrow(ctx, input, input.AccountID, uc.accounts.Escrow, domain.TransactionTypeEscrowDeposit, domain.EventEscrowLock)
}

// ReleaseEscrow pays held funds out of escrow to a user account.
func (uc *WalletUseCase) ReleaseEscrow(ctx context.Context, input EscrowInput) (*domain.Transaction, error) {
	return uc.escrow(ctx, input, uc.accounts.Escrow, input.AccountID, domain.TransactionTypeEscrowRelease, domain.EventEscrowRelease)
}

func (uc *WalletUseCase) escrow(ctx context.Context, input EscrowInput, from, to, txType, event string) (*domain.Transaction, error) {
	if input.EscrowRefID == "" {
		return nil, fmt.Errorf("%w: escrow reference is required", domain.ErrInvalidRequest)
	}

	if input.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidRequest)
	}

	return uc.posting.CreateTransaction(ctx, CreateTransactionInput{
		TenantID:       input.TenantID,
		OwnerAccountID: stringPtr(input.AccountID),
		IdempotencyKey: input.IdempotencyKey,
		Type:           txType,
		Entries: []domain.EntrySpec{
			{
				AccountID:   from,
				Direction:   domain.DirectionDebit,
				Currency:    input.Currency,
				AmountMinor: input.AmountMinor,
				Description: "Escrow " + input.EscrowRefID,
			},
			{
				AccountID:   to,
				Direction:   domain.DirectionCredit,
				Currency:    input.Currency,
				AmountMinor: input.AmountMinor,
				Description: "Escrow " + input.EscrowRefID,
			},
		},
		Metadata: copyMetadata(input.Metadata, map[string]any{
			domain.MetaEvent:       event,
			domain.MetaEscrowRefID: input.EscrowRefID,
		}),
	})
}

func (uc *WalletUseCase) feeEntries(currency string, split domain.FeeSplit, label string) []domain.EntrySpec {
	var entries []domain.EntrySpec

	if split.Fee > 0 {
		entries = append(entries, domain.EntrySpec{
			AccountID:   uc.accounts.Revenue,
			Direction:   domain.DirectionCredit,
			Currency:    currency,
			AmountMinor: split.Fee,
			Description: label + " service fee",
		})
	}

	if split.VAT > 0 {
		entries = append(entries, domain.EntrySpec{
			AccountID:   uc.accounts.Tax,
			Direction:   domain.DirectionCredit,
			Currency:    currency,
			AmountMinor: split.VAT,
			Description: label + " VAT",
		})
	}

	return entries
}

func opposite(d domain.Direction) domain.Direction {
	if d == domain.DirectionDebit {
		return domain.DirectionCredit
	}

	return domain.DirectionDebit
}
