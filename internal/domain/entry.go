package domain

import "time"

// Direction is the side of a ledger entry.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Valid reports whether d is DEBIT or CREDIT.
func (d Direction) Valid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// Sign returns +1 for CREDIT and -1 for DEBIT.
func (d Direction) Sign() int64 {
	if d == DirectionCredit {
		return 1
	}

	return -1
}

// EntrySpec is one requested leg of a posting, before it is persisted.
type EntrySpec struct {
	TenantID    *string
	AccountID   string
	Direction   Direction
	Currency    string
	Description string
	AmountMinor int64
}

// Entry is an immutable leg of a committed transaction.
type Entry struct {
	CreatedAt     time.Time
	TenantID      *string
	ID            string
	TransactionID string
	AccountID     string
	Direction     Direction
	Currency      string
	Description   string
	AmountMinor   int64
}
