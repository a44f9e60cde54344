package dto

import (
	"testing"
	"time"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now()
	account := &domain.Account{
		ID:                   "acc-1",
		Type:                 domain.AccountTypeAsset,
		Frozen:               true,
		AllowNegativeBalance: true,
		CreatedAt:            now,
	}

	resp := AccountFromDomain(account)
	if resp.ID != "acc-1" || resp.Type != "ASSET" || !resp.Frozen || !resp.AllowNegativeBalance {
		t.Fatalf("unexpected account response: %+v", resp)
	}
}

func TestTransactionFromDomain(t *testing.T) {
	ref := "ch_1"
	tx := &domain.Transaction{
		ID:           "tx-1",
		Type:         domain.TransactionTypeDeposit,
		Currency:     "USD",
		Status:       domain.StatusPending,
		AmountMinor:  10000,
		GatewayRefID: &ref,
		Metadata:     map[string]any{"depositFeeRate": "0.02"},
	}

	resp := TransactionFromDomain(tx)
	if resp.Status != "PENDING" || resp.AmountMinor != 10000 || *resp.GatewayRefID != "ch_1" {
		t.Fatalf("unexpected transaction response: %+v", resp)
	}

	list := TransactionsFromDomain([]*domain.Transaction{tx})
	if len(list) != 1 || list[0].ID != "tx-1" {
		t.Fatalf("TransactionsFromDomain returned %+v", list)
	}
}

func TestEntriesFromDomain(t *testing.T) {
	entries := []*domain.Entry{
		{ID: "e-1", TransactionID: "tx-1", AccountID: "alice", Direction: domain.DirectionDebit, Currency: "USD", AmountMinor: 5},
		{ID: "e-2", TransactionID: "tx-1", AccountID: "bob", Direction: domain.DirectionCredit, Currency: "USD", AmountMinor: 5},
	}

	resp := EntriesFromDomain(entries)
	if len(resp) != 2 || resp[0].Direction != "DEBIT" || resp[1].AccountID != "bob" {
		t.Fatalf("unexpected entries response: %+v", resp)
	}
}

func TestVerificationFromReport(t *testing.T) {
	report := &usecase.ReconciliationReport{
		Mismatches: []usecase.BalanceMismatch{{AccountID: "acc-1", Currency: "USD", StoredMinor: 1, ReplayedMinor: 0}},
		Currencies: []usecase.CurrencyTotals{{Currency: "USD", TotalDebit: 10, TotalCredit: 10}},
	}

	resp := VerificationFromReport(report)
	if resp.Consistent || len(resp.Mismatches) != 1 || resp.Mismatches[0].StoredMinor != 1 {
		t.Fatalf("unexpected verification response: %+v", resp)
	}

	if resp.Unbalanced == nil || len(resp.Unbalanced) != 0 {
		t.Fatalf("unbalanced should encode as an empty list, got %+v", resp.Unbalanced)
	}
}
