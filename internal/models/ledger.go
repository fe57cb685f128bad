package models

import "time"

type TransactionType string
type TransactionStatus string

const (
	TxnTypeDeposit         TransactionType = "deposit"
	TxnTypeWithdrawal      TransactionType = "withdrawal"
	TxnTypeInvestment      TransactionType = "investment"
	TxnTypeROIDistribution TransactionType = "roi_distribution"
	TxnTypeFee             TransactionType = "fee"
	TxnTypeRefund          TransactionType = "refund"
	TxnTypeAdjustment      TransactionType = "adjustment"
	TxnTypeTransfer        TransactionType = "transfer"

	TxnStatusPending   TransactionStatus = "pending"
	TxnStatusCompleted TransactionStatus = "completed"
	TxnStatusFailed    TransactionStatus = "failed"
	TxnStatusCancelled TransactionStatus = "cancelled"
	TxnStatusDisputed  TransactionStatus = "disputed"
)

// IsValidTransactionType reports whether s names a known transaction type
func IsValidTransactionType(s string) bool {
	switch TransactionType(s) {
	case TxnTypeDeposit, TxnTypeWithdrawal, TxnTypeInvestment, TxnTypeROIDistribution,
		TxnTypeFee, TxnTypeRefund, TxnTypeAdjustment, TxnTypeTransfer:
		return true
	}
	return false
}

// CanTransitionTo enforces the transaction status state machine:
// pending -> completed|failed|cancelled, completed <-> disputed.
// No transition is ever destructive.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TxnStatusPending:
		return next == TxnStatusCompleted || next == TxnStatusFailed || next == TxnStatusCancelled
	case TxnStatusCompleted:
		return next == TxnStatusDisputed
	case TxnStatusDisputed:
		return next == TxnStatusCompleted
	}
	return false
}

// LedgerTransaction represents one financial event
type LedgerTransaction struct {
	ID                int               `json:"id" db:"id"`
	ReferenceNumber   string            `json:"reference_number" db:"reference_number"`
	TransactionType   TransactionType   `json:"transaction_type" db:"transaction_type"`
	Status            TransactionStatus `json:"status" db:"status"`
	Amount            float64           `json:"amount" db:"amount"`
	TransactionDate   time.Time         `json:"transaction_date" db:"transaction_date"`
	Description       string            `json:"description" db:"description"`
	Metadata          map[string]any    `json:"metadata,omitempty" db:"metadata"`
	InitiatedBy       *int              `json:"initiated_by,omitempty" db:"initiated_by"`
	ExternalReference string            `json:"external_reference,omitempty" db:"external_reference"`
	ErrorMessage      string            `json:"error_message,omitempty" db:"error_message"`
	IsReconciled      bool              `json:"is_reconciled" db:"is_reconciled"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
	Entries           []*JournalEntry   `json:"entries,omitempty"`
}

// JournalEntry is one leg of a transaction. Amount is signed: positive credits
// the account, negative debits it. RunningBalance snapshots the account balance
// immediately after this entry was applied. Entries are append-only.
type JournalEntry struct {
	ID             int       `json:"id" db:"id"`
	TransactionID  int       `json:"transaction_id" db:"transaction_id"`
	AccountID      int       `json:"account_id" db:"account_id"`
	Amount         float64   `json:"amount" db:"amount"`
	Description    string    `json:"description" db:"description"`
	RunningBalance float64   `json:"running_balance" db:"running_balance"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EntryInput is the caller-facing shape of one transaction leg
type EntryInput struct {
	AccountID   int     `json:"account_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required"`
	Description string  `json:"description,omitempty"`
}

type ReconciliationStatus string

const (
	ReconStatusMatched     ReconciliationStatus = "matched"
	ReconStatusDiscrepancy ReconciliationStatus = "discrepancy"
)

// Reconciliation is one audit snapshot comparing expected vs actual balance
type Reconciliation struct {
	ID              int                  `json:"id" db:"id"`
	AccountID       int                  `json:"account_id" db:"account_id"`
	ExpectedBalance float64              `json:"expected_balance" db:"expected_balance"`
	ActualBalance   float64              `json:"actual_balance" db:"actual_balance"`
	Discrepancy     float64              `json:"discrepancy" db:"discrepancy"`
	Status          ReconciliationStatus `json:"status" db:"status"`
	Notes           string               `json:"notes,omitempty" db:"notes"`
	ReconciledBy    *int                 `json:"reconciled_by,omitempty" db:"reconciled_by"`
	CreatedAt       time.Time            `json:"created_at" db:"created_at"`
}

// AccountBalanceHistory records an account's balance after each transaction
type AccountBalanceHistory struct {
	ID            int       `json:"id" db:"id"`
	AccountID     int       `json:"account_id" db:"account_id"`
	TransactionID int       `json:"transaction_id" db:"transaction_id"`
	Balance       float64   `json:"balance" db:"balance"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// LedgerSchema is the ledger's own DDL. It references the platform's users
// and properties tables but does not create them: the ledger runs against the
// platform database, and those tables must already exist before migration.
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
    id SERIAL PRIMARY KEY,
    account_type VARCHAR(32) NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    user_id INTEGER REFERENCES users(id),
    property_id INTEGER REFERENCES properties(id),
    current_balance DECIMAL(19, 4) NOT NULL DEFAULT 0,
    currency VARCHAR(3) NOT NULL DEFAULT 'NGN',
    version INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_accounts_type_user
    ON ledger_accounts (account_type, user_id) WHERE user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_accounts_type_property
    ON ledger_accounts (account_type, property_id) WHERE property_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_accounts_singleton
    ON ledger_accounts (account_type) WHERE user_id IS NULL AND property_id IS NULL;

CREATE TABLE IF NOT EXISTS ledger_transactions (
    id SERIAL PRIMARY KEY,
    reference_number VARCHAR(32) NOT NULL UNIQUE,
    transaction_type VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    amount DECIMAL(19, 4) NOT NULL,
    transaction_date TIMESTAMP NOT NULL DEFAULT NOW(),
    description TEXT,
    metadata JSONB,
    initiated_by INTEGER REFERENCES users(id),
    external_reference VARCHAR(255),
    error_message TEXT,
    is_reconciled BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_transactions_type ON ledger_transactions (transaction_type);
CREATE INDEX IF NOT EXISTS idx_ledger_transactions_status ON ledger_transactions (status);
CREATE INDEX IF NOT EXISTS idx_ledger_transactions_initiated_by ON ledger_transactions (initiated_by);

CREATE TABLE IF NOT EXISTS journal_entries (
    id SERIAL PRIMARY KEY,
    transaction_id INTEGER NOT NULL REFERENCES ledger_transactions(id),
    account_id INTEGER NOT NULL REFERENCES ledger_accounts(id),
    amount DECIMAL(19, 4) NOT NULL,
    description TEXT,
    running_balance DECIMAL(19, 4) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_journal_entries_transaction ON journal_entries (transaction_id);
CREATE INDEX IF NOT EXISTS idx_journal_entries_account ON journal_entries (account_id);

CREATE TABLE IF NOT EXISTS wallets (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
    balance DECIMAL(19, 4) NOT NULL DEFAULT 0,
    currency VARCHAR(3) NOT NULL DEFAULT 'NGN',
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reconciliations (
    id SERIAL PRIMARY KEY,
    account_id INTEGER NOT NULL REFERENCES ledger_accounts(id),
    expected_balance DECIMAL(19, 4) NOT NULL,
    actual_balance DECIMAL(19, 4) NOT NULL,
    discrepancy DECIMAL(19, 4) NOT NULL,
    status VARCHAR(16) NOT NULL,
    notes TEXT,
    reconciled_by INTEGER REFERENCES users(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS account_balance_history (
    id SERIAL PRIMARY KEY,
    account_id INTEGER NOT NULL REFERENCES ledger_accounts(id),
    transaction_id INTEGER NOT NULL REFERENCES ledger_transactions(id),
    balance DECIMAL(19, 4) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_balance_history_account ON account_balance_history (account_id, created_at);
`
