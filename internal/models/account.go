package models

import "time"

// AccountType identifies a category in the chart of accounts
type AccountType string

const (
	AccountTypeUserWallet      AccountType = "user_wallet"
	AccountTypePlatformRevenue AccountType = "platform_revenue"
	AccountTypePropertyFunding AccountType = "property_funding"
	AccountTypeEscrow          AccountType = "escrow"
	AccountTypeFeeCollection   AccountType = "fee_collection"
	AccountTypeInvestmentPool  AccountType = "investment_pool"
	AccountTypeROIReserve      AccountType = "roi_reserve"
)

// SystemAccountTypes are process-wide singleton accounts with no owner key
var SystemAccountTypes = []AccountType{
	AccountTypePlatformRevenue,
	AccountTypeEscrow,
	AccountTypeFeeCollection,
	AccountTypeInvestmentPool,
	AccountTypeROIReserve,
}

// IsValidAccountType reports whether s names a known account type
func IsValidAccountType(s string) bool {
	switch AccountType(s) {
	case AccountTypeUserWallet, AccountTypePlatformRevenue, AccountTypePropertyFunding,
		AccountTypeEscrow, AccountTypeFeeCollection, AccountTypeInvestmentPool,
		AccountTypeROIReserve:
		return true
	}
	return false
}

// Account is one row in the chart of accounts. CurrentBalance is derived from
// journal entries but cached here; only the ledger service may mutate it.
type Account struct {
	ID             int         `json:"id" db:"id"`
	AccountType    AccountType `json:"account_type" db:"account_type"`
	Name           string      `json:"name" db:"name"`
	Description    string      `json:"description,omitempty" db:"description"`
	UserID         *int        `json:"user_id,omitempty" db:"user_id"`
	PropertyID     *int        `json:"property_id,omitempty" db:"property_id"`
	CurrentBalance float64     `json:"current_balance" db:"current_balance"`
	Currency       string      `json:"currency" db:"currency"`
	Version        int         `json:"version" db:"version"` // for optimistic locking
	IsActive       bool        `json:"is_active" db:"is_active"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Wallet is the legacy simplified read table mirroring user_wallet balances
type Wallet struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Balance   float64   `json:"balance" db:"balance"`
	Currency  string    `json:"currency" db:"currency"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
