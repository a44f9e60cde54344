package postgres

import (
	"context"

	"github.com/iho/postingledger/internal/infrastructure/postgres/generated"
	"github.com/iho/postingledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// FindBalanceMismatches compares every stored balance with the replay of its
// entries in a single statement, so both sides come from one snapshot.
func (r *LedgerRepository) FindBalanceMismatches(ctx context.Context) ([]usecase.BalanceMismatch, error) {
	rows, err := r.queries.FindBalanceMismatches(ctx)
	if err != nil {
		return nil, err
	}

	mismatches := make([]usecase.BalanceMismatch, 0, len(rows))
	for _, row := range rows {
		mismatches = append(mismatches, usecase.BalanceMismatch{
			AccountID:     row.AccountID,
			Currency:      row.Currency,
			StoredMinor:   row.StoredMinor,
			ReplayedMinor: row.ReplayedMinor,
		})
	}

	return mismatches, nil
}

// TotalsByCurrency sums debit and credit entries per currency.
func (r *LedgerRepository) TotalsByCurrency(ctx context.Context) ([]usecase.CurrencyTotals, error) {
	rows, err := r.queries.TotalsByCurrency(ctx)
	if err != nil {
		return nil, err
	}

	totals := make([]usecase.CurrencyTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, usecase.CurrencyTotals{
			Currency:    row.Currency,
			TotalDebit:  row.TotalDebit,
			TotalCredit: row.TotalCredit,
		})
	}

	return totals, nil
}
