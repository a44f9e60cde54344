package domain

import "time"

// AccountType tags what an account represents in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}

	return false
}

// Account is a ledger participant: a user wallet or a platform bucket
// such as revenue, tax liability, escrow holding or external clearing.
type Account struct {
	CreatedAt            time.Time
	TenantID             *string
	OwnerID              *string
	ID                   string
	Type                 AccountType
	Frozen               bool
	AllowNegativeBalance bool
}

// CanDebit reports whether the account may take a net outflow.
func (a *Account) CanDebit() error {
	if a.Frozen {
		return ErrAccountFrozen
	}

	return nil
}
