package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/infrastructure/metrics"
)

// ErrInconsistentLedger is returned when stored balances disagree with the entries.
var ErrInconsistentLedger = errors.New("ledger is inconsistent")

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgerRepo LedgerRepository, m *metrics.Metrics, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		ledgerRepo: ledgerRepo,
		metrics:    m,
		logger:     logger.With().Str("component", "reconciliation").Logger(),
	}
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt  time.Time
	Mismatches []BalanceMismatch
	// Unbalanced lists currencies whose debit and credit entry totals differ.
	Unbalanced []CurrencyTotals
	Currencies []CurrencyTotals
	Consistent bool
}

// VerifyBalances replays every entry and compares the result with the
// stored balance rows, then checks debits equal credits per currency.
func (uc *ReconciliationUseCase) VerifyBalances(ctx context.Context) (*ReconciliationReport, error) {
	mismatches, err := uc.ledgerRepo.FindBalanceMismatches(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := uc.ledgerRepo.TotalsByCurrency(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		CheckedAt:  time.Now().UTC(),
		Mismatches: mismatches,
		Unbalanced: make([]CurrencyTotals, 0),
		Currencies: totals,
	}

	if report.Mismatches == nil {
		report.Mismatches = make([]BalanceMismatch, 0)
	}

	for _, t := range totals {
		if t.TotalDebit != t.TotalCredit {
			report.Unbalanced = append(report.Unbalanced, t)
		}
	}

	report.Consistent = len(report.Mismatches) == 0 && len(report.Unbalanced) == 0

	if uc.metrics != nil {
		uc.metrics.BalanceMismatches.Set(float64(len(report.Mismatches)))
	}

	if !report.Consistent {
		uc.logger.Error().
			Int("mismatches", len(report.Mismatches)).
			Int("unbalanced_currencies", len(report.Unbalanced)).
			Msg("ledger verification failed")
	}

	return report, nil
}

// CheckLedgerConsistency returns ErrInconsistentLedger when VerifyBalances finds a problem.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	report, err := uc.VerifyBalances(ctx)
	if err != nil {
		return err
	}

	if !report.Consistent {
		return ErrInconsistentLedger
	}

	return nil
}
