package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/postingledger/internal/domain"
)

// BalanceMutator applies signed deltas to balance rows inside a caller's transaction.
type BalanceMutator struct {
	balanceRepo BalanceRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewBalanceMutator creates a new BalanceMutator.
func NewBalanceMutator(balanceRepo BalanceRepository, idGen IDGenerator) *BalanceMutator {
	return &BalanceMutator{
		balanceRepo: balanceRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ApplyDelta locks the (account, currency) balance row and adds delta to it.
// A result below zero fails with ErrInsufficientFunds unless the delta allows
// a negative balance. Nothing is written when the check fails.
func (m *BalanceMutator) ApplyDelta(ctx context.Context, tx Transaction, delta domain.BalanceDelta, tenantID *string) error {
	balance, err := m.balanceRepo.GetForUpdate(ctx, tx, delta.AccountID, delta.Currency)
	if err != nil {
		return err
	}

	now := m.now()

	if balance == nil {
		if delta.Delta < 0 && !delta.AllowNegative {
			return &domain.InsufficientFundsError{
				AccountID: delta.AccountID,
				Currency:  delta.Currency,
				Delta:     delta.Delta,
			}
		}

		return m.balanceRepo.Insert(ctx, tx, &domain.Balance{
			ID:          m.idGen.Generate(),
			TenantID:    tenantID,
			AccountID:   delta.AccountID,
			Currency:    delta.Currency,
			AmountMinor: delta.Delta,
			UpdatedAt:   now,
		})
	}

	next := balance.AmountMinor + delta.Delta
	if (delta.Delta > 0 && next < balance.AmountMinor) || (delta.Delta < 0 && next > balance.AmountMinor) {
		return fmt.Errorf("%w: balance overflow for account %s", domain.ErrInvalidRequest, delta.AccountID)
	}

	if next < 0 && !delta.AllowNegative {
		return &domain.InsufficientFundsError{
			AccountID: delta.AccountID,
			Currency:  delta.Currency,
			Current:   balance.AmountMinor,
			Delta:     delta.Delta,
		}
	}

	return m.balanceRepo.UpdateAmount(ctx, tx, balance.ID, next, now)
}
