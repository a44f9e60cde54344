package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/postingledger/internal/domain"
	"github.com/iho/postingledger/internal/infrastructure/metrics"
)

// LifecycleUseCase moves transactions between statuses.
type LifecycleUseCase struct {
	txManager  TransactionManager
	txRepo     TransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewLifecycleUseCase creates a new LifecycleUseCase.
func NewLifecycleUseCase(
	txManager TransactionManager,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LifecycleUseCase {
	return &LifecycleUseCase{
		txManager:  txManager,
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    m,
		logger:     logger.With().Str("component", "lifecycle").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UpdateStatusInput represents input for a status change.
type UpdateStatusInput struct {
	// TenantID scopes the lookup when set.
	TenantID *string
	// GatewayRefID replaces the stored reference when set.
	GatewayRefID  *string
	TransactionID string
	Status        domain.TransactionStatus
}

// UpdateTransactionStatus applies a lifecycle move under a row lock.
// POSTED and REVERSED transactions are terminal. Moving to the current
// status only refreshes the gateway reference.
func (uc *LifecycleUseCase) UpdateTransactionStatus(ctx context.Context, input UpdateStatusInput) (*domain.Transaction, error) {
	if input.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", domain.ErrInvalidRequest)
	}

	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, input.Status)
	}

	input.GatewayRefID = normalizeKey(input.GatewayRefID)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, classifyError(err)
	}

	defer func() { _ = tx.Rollback(txCtx) }()

	current, err := uc.txRepo.GetForUpdate(txCtx, tx, input.TransactionID, input.TenantID)
	if err != nil {
		return nil, classifyError(err)
	}

	if err := current.Status.CanTransitionTo(input.Status); err != nil {
		return nil, err
	}

	gatewayRef := current.GatewayRefID
	if input.GatewayRefID != nil {
		gatewayRef = input.GatewayRefID
	}

	now := uc.now()

	if err := uc.txRepo.UpdateStatus(txCtx, tx, current.ID, input.Status, gatewayRef, now); err != nil {
		return nil, classifyError(err)
	}

	previous := current.Status
	if previous != input.Status {
		event := newOutboxEvent(uc.idGen, current.ID, domain.EventTypeTransactionStatusChanged, domain.TransactionStatusChangedEvent{
			TransactionID: current.ID,
			From:          string(previous),
			To:            string(input.Status),
			GatewayRefID:  derefString(gatewayRef),
		}, now)

		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return nil, classifyError(err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, classifyError(err)
	}

	current.Status = input.Status
	current.GatewayRefID = gatewayRef
	current.UpdatedAt = now

	if previous != input.Status {
		uc.logger.Info().
			Str("transaction_id", current.ID).
			Str("from", string(previous)).
			Str("to", string(input.Status)).
			Msg("transaction status changed")

		if uc.metrics != nil {
			uc.metrics.StatusTransitions.WithLabelValues(string(previous), string(input.Status)).Inc()
		}
	}

	return current, nil
}

// MarkFailed moves a transaction to FAILED and logs instead of returning
// when the update itself fails.
func (uc *LifecycleUseCase) MarkFailed(ctx context.Context, id string, tenantID, gatewayRefID *string) {
	_, err := uc.UpdateTransactionStatus(ctx, UpdateStatusInput{
		TransactionID: id,
		TenantID:      tenantID,
		GatewayRefID:  gatewayRefID,
		Status:        domain.StatusFailed,
	})
	if err != nil && !errors.Is(err, domain.ErrInvalidStateTransition) {
		uc.logger.Error().Err(err).Str("transaction_id", id).Msg("failed to mark transaction as failed")
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
