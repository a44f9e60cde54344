package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// EntryRequest is one leg of a posting.
type EntryRequest struct {
	AccountID   string `json:"account_id"`
	Direction   string `json:"direction"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	AmountMinor int64  `json:"amount_minor"`
}

// CreateTransactionRequest represents a request to post a transaction.
type CreateTransactionRequest struct {
	Metadata       map[string]any `json:"metadata,omitempty"`
	OwnerAccountID *string        `json:"owner_account_id,omitempty"`
	GatewayRefID   *string        `json:"gateway_ref_id,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	Type           string         `json:"type"`
	Status         string         `json:"status,omitempty"`
	Entries        []EntryRequest `json:"entries"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput(tenantID *string) usecase.CreateTransactionInput {
	entries := make([]domain.EntrySpec, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = domain.EntrySpec{
			TenantID:    tenantID,
			AccountID:   e.AccountID,
			Direction:   domain.Direction(e.Direction),
			Currency:    e.Currency,
			Description: e.Description,
			AmountMinor: e.AmountMinor,
		}
	}

	return usecase.CreateTransactionInput{
		Metadata:       r.Metadata,
		TenantID:       tenantID,
		OwnerAccountID: r.OwnerAccountID,
		GatewayRefID:   r.GatewayRefID,
		IdempotencyKey: r.IdempotencyKey,
		Type:           r.Type,
		Status:         domain.TransactionStatus(r.Status),
		Entries:        entries,
	}
}

// CreatePendingRequest represents a request to open a pending transaction.
type CreatePendingRequest struct {
	Metadata       map[string]any `json:"metadata,omitempty"`
	GatewayRefID   *string        `json:"gateway_ref_id,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	OwnerAccountID string         `json:"owner_account_id"`
	Type           string         `json:"type"`
	Currency       string         `json:"currency"`
	AmountMinor    int64          `json:"amount_minor"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePendingRequest) ToUseCaseInput(tenantID *string) usecase.CreatePendingInput {
	return usecase.CreatePendingInput{
		Metadata:       r.Metadata,
		TenantID:       tenantID,
		GatewayRefID:   r.GatewayRefID,
		IdempotencyKey: r.IdempotencyKey,
		OwnerAccountID: r.OwnerAccountID,
		Type:           r.Type,
		Currency:       r.Currency,
		AmountMinor:    r.AmountMinor,
	}
}

// UpdateStatusRequest represents a lifecycle move.
type UpdateStatusRequest struct {
	GatewayRefID *string `json:"gateway_ref_id,omitempty"`
	Status       string  `json:"status"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateStatusRequest) ToUseCaseInput(id string, tenantID *string) usecase.UpdateStatusInput {
	return usecase.UpdateStatusInput{
		TenantID:      tenantID,
		GatewayRefID:  r.GatewayRefID,
		TransactionID: id,
		Status:        domain.TransactionStatus(r.Status),
	}
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	OwnerID              *string `json:"owner_id,omitempty"`
	ID                   string  `json:"id,omitempty"`
	Type                 string  `json:"type"`
	AllowNegativeBalance bool    `json:"allow_negative_balance"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(tenantID *string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		TenantID:             tenantID,
		OwnerID:              r.OwnerID,
		ID:                   r.ID,
		Type:                 domain.AccountType(r.Type),
		AllowNegativeBalance: r.AllowNegativeBalance,
	}
}

// SetFrozenRequest freezes or unfreezes an account.
type SetFrozenRequest struct {
	Frozen bool `json:"frozen"`
}

// FeeOverride replaces the configured fee schedule for one request.
type FeeOverride struct {
	FeeRate decimal.Decimal `json:"fee_rate"`
	VATRate decimal.Decimal `json:"vat_rate"`
}

func (f *FeeOverride) schedule() *domain.FeeSchedule {
	if f == nil {
		return nil
	}

	return &domain.FeeSchedule{FeeRate: f.FeeRate, VATRate: f.VATRate}
}

// DepositRequest starts a card deposit.
type DepositRequest struct {
	Metadata        map[string]any `json:"metadata,omitempty"`
	IdempotencyKey  *string        `json:"idempotency_key,omitempty"`
	Fees            *FeeOverride   `json:"fees,omitempty"`
	AccountID       string         `json:"account_id"`
	Currency        string         `json:"currency"`
	PaymentMethodID string         `json:"payment_method_id"`
	GrossMinor      int64          `json:"gross_minor"`
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput(tenantID *string) usecase.DepositInput {
	return usecase.DepositInput{
		Metadata:        r.Metadata,
		TenantID:        tenantID,
		IdempotencyKey:  r.IdempotencyKey,
		Fees:            r.Fees.schedule(),
		AccountID:       r.AccountID,
		Currency:        r.Currency,
		PaymentMethodID: r.PaymentMethodID,
		GrossMinor:      r.GrossMinor,
	}
}

// WithdrawRequest pays out to an external bank account.
type WithdrawRequest struct {
	Metadata       map[string]any `json:"metadata,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	AccountID      string         `json:"account_id"`
	Currency       string         `json:"currency"`
	BankAccountID  string         `json:"bank_account_id"`
	NetMinor       int64          `json:"net_minor"`
	FeeMinor       int64          `json:"fee_minor"`
	VATMinor       int64          `json:"vat_minor"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawRequest) ToUseCaseInput(tenantID *string) usecase.WithdrawInput {
	return usecase.WithdrawInput{
		Metadata:       r.Metadata,
		TenantID:       tenantID,
		IdempotencyKey: r.IdempotencyKey,
		AccountID:      r.AccountID,
		Currency:       r.Currency,
		BankAccountID:  r.BankAccountID,
		NetMinor:       r.NetMinor,
		FeeMinor:       r.FeeMinor,
		VATMinor:       r.VATMinor,
	}
}

// TransferRequest moves funds between two users.
type TransferRequest struct {
	Metadata           map[string]any `json:"metadata,omitempty"`
	IdempotencyKey     *string        `json:"idempotency_key,omitempty"`
	Fees               *FeeOverride   `json:"fees,omitempty"`
	SenderAccountID    string         `json:"sender_account_id"`
	RecipientAccountID string         `json:"recipient_account_id"`
	Currency           string         `json:"currency"`
	AmountMinor        int64          `json:"amount_minor"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput(tenantID *string) usecase.TransferInput {
	return usecase.TransferInput{
		Metadata:           r.Metadata,
		TenantID:           tenantID,
		IdempotencyKey:     r.IdempotencyKey,
		Fees:               r.Fees.schedule(),
		SenderAccountID:    r.SenderAccountID,
		RecipientAccountID: r.RecipientAccountID,
		Currency:           r.Currency,
		AmountMinor:        r.AmountMinor,
	}
}

// EscrowRequest funds or releases escrow.
type EscrowRequest struct {
	Metadata       map[string]any `json:"metadata,omitempty"`
	IdempotencyKey *string        `json:"idempotency_key,omitempty"`
	AccountID      string         `json:"account_id"`
	EscrowRefID    string         `json:"escrow_ref_id"`
	Currency       string         `json:"currency"`
	AmountMinor    int64          `json:"amount_minor"`
}

// ToUseCaseInput converts to use case input.
func (r *EscrowRequest) ToUseCaseInput(tenantID *string) usecase.EscrowInput {
	return usecase.EscrowInput{
		Metadata:       r.Metadata,
		TenantID:       tenantID,
		IdempotencyKey: r.IdempotencyKey,
		AccountID:      r.AccountID,
		EscrowRefID:    r.EscrowRefID,
		Currency:       r.Currency,
		AmountMinor:    r.AmountMinor,
	}
}

// Payment webhook statuses.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentWebhookRequest is a gateway payment notification.
// Status defaults to succeeded.
type PaymentWebhookRequest struct {
	TransactionID string `json:"transaction_id,omitempty"`
	ExternalRefID string `json:"external_ref_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PaymentWebhookRequest) ToUseCaseInput() usecase.FinalizeDepositInput {
	return usecase.FinalizeDepositInput{
		TransactionID: r.TransactionID,
		ExternalRefID: r.ExternalRefID,
	}
}
