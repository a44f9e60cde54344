package domain

import (
	"errors"
	"fmt"
)

var (
	// Request errors
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnbalancedEntries = errors.New("unbalanced entries")
	ErrMetadataTooLarge  = errors.New("metadata size exceeds limit")

	// Balance errors
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountFrozen   = errors.New("account is frozen")
	ErrAccountExists   = errors.New("account already exists")

	// Transaction errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrFinalizationFailed      = errors.New("ledger finalization failed")
	ErrFinalizationInProgress  = errors.New("finalization already in progress")
	ErrGatewayFailure          = errors.New("payment gateway failure")

	// Store errors
	ErrPersistence = errors.New("persistence failure")
)

// UnbalancedError reports the debit and credit totals of a rejected posting.
type UnbalancedError struct {
	TotalDebit  int64
	TotalCredit int64
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("%s: debit=%d credit=%d", ErrUnbalancedEntries, e.TotalDebit, e.TotalCredit)
}

func (e *UnbalancedError) Unwrap() error {
	return ErrUnbalancedEntries
}

// InsufficientFundsError names the balance that would have gone negative.
type InsufficientFundsError struct {
	AccountID string
	Currency  string
	Current   int64
	Delta     int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s in account %s (%s)", ErrInsufficientFunds, e.AccountID, e.Currency)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IsBusinessRejection reports whether err is a rule violation rather than a store failure.
func IsBusinessRejection(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrUnbalancedEntries),
		errors.Is(err, ErrMetadataTooLarge),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAccountFrozen),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrInvalidStateTransition):
		return true
	}

	return false
}
