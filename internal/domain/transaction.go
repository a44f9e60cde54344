package domain

import (
	"fmt"
	"time"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusPosted   TransactionStatus = "POSTED"
	StatusFailed   TransactionStatus = "FAILED"
	StatusReversed TransactionStatus = "REVERSED"
)

// Transaction type tags used by the wallet and settlement flows.
const (
	TransactionTypeDeposit       = "DEPOSIT"
	TransactionTypeWithdrawal    = "WITHDRAWAL"
	TransactionTypeP2PTransfer   = "P2P_TRANSFER"
	TransactionTypeEscrowDeposit = "ESCROW_DEPOSIT"
	TransactionTypeEscrowRelease = "ESCROW_RELEASE"
	TransactionTypeReversal      = "REVERSAL"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPosted, StatusFailed, StatusReversed:
		return true
	}

	return false
}

// Terminal reports whether no other status can follow s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusPosted || s == StatusReversed
}

// CanTransitionTo checks a lifecycle move from s to next.
// Moving to the same status is always allowed and is treated as a no-op by callers.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, next)
	}

	if s == next {
		return nil
	}

	switch s {
	case StatusPosted:
		return fmt.Errorf("%w: posted transaction cannot be modified", ErrInvalidStateTransition)
	case StatusReversed:
		return fmt.Errorf("%w: reversed transaction cannot be modified", ErrInvalidStateTransition)
	}

	return nil
}

// Transaction is the unit of atomic posting.
type Transaction struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Metadata       map[string]any
	TenantID       *string
	OwnerAccountID *string
	GatewayRefID   *string
	IdempotencyKey *string
	ID             string
	Type           string
	Currency       string
	Status         TransactionStatus
	AmountMinor    int64
}

// MetadataString returns a string metadata value, or "" when absent.
func (t *Transaction) MetadataString(key string) string {
	if t.Metadata == nil {
		return ""
	}

	v, ok := t.Metadata[key]
	if !ok || v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
