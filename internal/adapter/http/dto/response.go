package dto

import (
	"time"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	TenantID             *string   `json:"tenant_id,omitempty"`
	OwnerID              *string   `json:"owner_id,omitempty"`
	ID                   string    `json:"id"`
	Type                 string    `json:"type"`
	Frozen               bool      `json:"frozen"`
	AllowNegativeBalance bool      `json:"allow_negative_balance"`
	CreatedAt            time.Time `json:"created_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		TenantID:             a.TenantID,
		OwnerID:              a.OwnerID,
		ID:                   a.ID,
		Type:                 string(a.Type),
		Frozen:               a.Frozen,
		AllowNegativeBalance: a.AllowNegativeBalance,
		CreatedAt:            a.CreatedAt,
	}
}

// BalanceResponse carries a balance in minor units as a decimal string.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Currency  string `json:"currency,omitempty"`
	Balance   string `json:"balance"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	Metadata       map[string]any   `json:"metadata,omitempty"`
	TenantID       *string          `json:"tenant_id,omitempty"`
	OwnerAccountID *string          `json:"owner_account_id,omitempty"`
	GatewayRefID   *string          `json:"gateway_ref_id,omitempty"`
	IdempotencyKey *string          `json:"idempotency_key,omitempty"`
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	Currency       string           `json:"currency"`
	Status         string           `json:"status"`
	AmountMinor    int64            `json:"amount_minor"`
	Entries        []*EntryResponse `json:"entries,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		Metadata:       t.Metadata,
		TenantID:       t.TenantID,
		OwnerAccountID: t.OwnerAccountID,
		GatewayRefID:   t.GatewayRefID,
		IdempotencyKey: t.IdempotencyKey,
		ID:             t.ID,
		Type:           t.Type,
		Currency:       t.Currency,
		Status:         string(t.Status),
		AmountMinor:    t.AmountMinor,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Direction     string    `json:"direction"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description,omitempty"`
	AmountMinor   int64     `json:"amount_minor"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		AccountID:     e.AccountID,
		Direction:     string(e.Direction),
		Currency:      e.Currency,
		Description:   e.Description,
		AmountMinor:   e.AmountMinor,
		CreatedAt:     e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// CurrencyTotalsResponse is the debit and credit sum of one currency.
type CurrencyTotalsResponse struct {
	Currency    string `json:"currency"`
	TotalDebit  int64  `json:"total_debit"`
	TotalCredit int64  `json:"total_credit"`
}

// BalanceMismatchResponse is a stored balance that disagrees with its entries.
type BalanceMismatchResponse struct {
	AccountID     string `json:"account_id"`
	Currency      string `json:"currency"`
	StoredMinor   int64  `json:"stored_minor"`
	ReplayedMinor int64  `json:"replayed_minor"`
}

// VerificationResponse is the result of a ledger verification run.
type VerificationResponse struct {
	CheckedAt  time.Time                 `json:"checked_at"`
	Mismatches []BalanceMismatchResponse `json:"mismatches"`
	Unbalanced []CurrencyTotalsResponse  `json:"unbalanced"`
	Currencies []CurrencyTotalsResponse  `json:"currencies"`
	Consistent bool                      `json:"consistent"`
}

// VerificationFromReport converts a reconciliation report to response.
func VerificationFromReport(r *usecase.ReconciliationReport) *VerificationResponse {
	resp := &VerificationResponse{
		CheckedAt:  r.CheckedAt,
		Mismatches: make([]BalanceMismatchResponse, len(r.Mismatches)),
		Unbalanced: totalsFromUseCase(r.Unbalanced),
		Currencies: totalsFromUseCase(r.Currencies),
		Consistent: r.Consistent,
	}

	for i, m := range r.Mismatches {
		resp.Mismatches[i] = BalanceMismatchResponse{
			AccountID:     m.AccountID,
			Currency:      m.Currency,
			StoredMinor:   m.StoredMinor,
			ReplayedMinor: m.ReplayedMinor,
		}
	}

	return resp
}

func totalsFromUseCase(totals []usecase.CurrencyTotals) []CurrencyTotalsResponse {
	result := make([]CurrencyTotalsResponse, len(totals))
	for i, t := range totals {
		result[i] = CurrencyTotalsResponse{Currency: t.Currency, TotalDebit: t.TotalDebit, TotalCredit: t.TotalCredit}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
