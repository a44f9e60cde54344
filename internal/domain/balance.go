package domain

import "time"

// Balance is the materialized signed amount of one (account, currency) pair.
// It always equals the sum of CREDIT minus DEBIT entries for that pair.
type Balance struct {
	UpdatedAt   time.Time
	TenantID    *string
	ID          string
	AccountID   string
	Currency    string
	AmountMinor int64
}
