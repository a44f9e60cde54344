package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from holding balance locks
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// FinalizationLockTTL bounds how long one webhook delivery may hold a pending transaction
	FinalizationLockTTL = 30 * time.Second

	// FinalizationLockPrefix prefixes the lock key held while a deposit is finalized
	FinalizationLockPrefix = "webhook-lock:"

	// DepositPostKeyPrefix prefixes the idempotency key of a finalized deposit
	DepositPostKeyPrefix = "deposit-post:"

	// WithdrawalReversalKeyPrefix prefixes the idempotency key of a withdrawal reversal
	WithdrawalReversalKeyPrefix = "withdrawal-reversal:"
)
