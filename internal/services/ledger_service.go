package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/big"
	"time"

	"github.com/propvest/backend/internal/audit"
	"github.com/propvest/backend/internal/config"
	"github.com/propvest/backend/internal/models"
)

// LedgerService is the sole writer of ledger transactions, journal entries and
// account balances. Every money movement goes through CreateTransaction as one
// atomic database transaction; partial entries are never visible.
type LedgerService struct {
	db    *sql.DB
	cfg   *config.LedgerConfig
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB, cfg *config.LedgerConfig, auditLogger *audit.Logger) *LedgerService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	return &LedgerService{
		db:    db,
		cfg:   cfg,
		audit: auditLogger,
	}
}

// TransactionOptions carries the optional attributes of a ledger transaction
type TransactionOptions struct {
	Status            models.TransactionStatus
	Description       string
	Metadata          map[string]any
	InitiatedBy       *int
	ExternalReference string
}

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func (s *LedgerService) generateReferenceNumber() (string, error) {
	buf := make([]byte, 10)
	charsetLen := big.NewInt(int64(len(referenceCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate reference number: %w", err)
		}
		buf[i] = referenceCharset[n.Int64()]
	}
	return s.cfg.ReferencePrefix + "-" + string(buf), nil
}

// lockedAccount is an account row held FOR UPDATE inside a transaction
type lockedAccount struct {
	ID          int
	AccountType models.AccountType
	UserID      *int
	Balance     float64
	Version     int
}

func (s *LedgerService) lockAccount(tx *sql.Tx, accountID int) (*lockedAccount, error) {
	var account lockedAccount
	err := tx.QueryRow(`
		SELECT id, account_type, user_id, current_balance, version
		FROM ledger_accounts
		WHERE id = $1
		FOR UPDATE`, accountID).
		Scan(&account.ID, &account.AccountType, &account.UserID, &account.Balance, &account.Version)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "account", Key: accountID}
	}
	return &account, err
}

func (s *LedgerService) createJournalEntry(tx *sql.Tx, transactionID, accountID int, amount float64, description string, runningBalance float64) error {
	_, err := tx.Exec(`
		INSERT INTO journal_entries (transaction_id, account_id, amount, description, running_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		transactionID, accountID, amount, description, runningBalance, time.Now())
	return err
}

func (s *LedgerService) updateAccountBalance(tx *sql.Tx, accountID int, newBalance float64, version int) error {
	result, err := tx.Exec(`
		UPDATE ledger_accounts
		SET current_balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), accountID, version)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %d", accountID)
	}

	return nil
}

func (s *LedgerService) appendBalanceHistory(tx *sql.Tx, accountID, transactionID int, balance float64) error {
	_, err := tx.Exec(`
		INSERT INTO account_balance_history (account_id, transaction_id, balance, created_at)
		VALUES ($1, $2, $3, $4)`,
		accountID, transactionID, balance, time.Now())
	return err
}

// mirrorWalletBalance keeps the legacy wallets read table in step with the
// user_wallet ledger account, inside the same atomic unit as the ledger write.
func (s *LedgerService) mirrorWalletBalance(tx *sql.Tx, userID int, balance float64) error {
	_, err := tx.Exec(`
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET balance = $2, updated_at = $3`,
		userID, balance, time.Now())
	return err
}

// CreateTransaction persists one financial event with its balancing journal
// entries. Entries are applied in list order; a later entry against the same
// account observes the balance left by earlier entries in the same call.
func (s *LedgerService) CreateTransaction(ctx context.Context, txnType models.TransactionType, amount float64, entries []models.EntryInput, opts TransactionOptions) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "amount must be positive"}
	}
	if len(entries) < 2 {
		return nil, &ValidationError{Message: "a transaction requires at least 2 journal entries"}
	}

	var sum float64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if math.Abs(sum) > s.cfg.BalanceTolerance {
		return nil, &UnbalancedTransactionError{Sum: sum}
	}

	status := opts.Status
	if status == "" {
		status = models.TxnStatusPending
	}

	reference, err := s.generateReferenceNumber()
	if err != nil {
		return nil, err
	}

	txn := &models.LedgerTransaction{
		ReferenceNumber:   reference,
		TransactionType:   txnType,
		Status:            status,
		Amount:            amount,
		TransactionDate:   time.Now(),
		Description:       opts.Description,
		Metadata:          opts.Metadata,
		InitiatedBy:       opts.InitiatedBy,
		ExternalReference: opts.ExternalReference,
	}

	var metadataJSON []byte
	if txn.Metadata != nil {
		metadataJSON, _ = json.Marshal(txn.Metadata)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	err = dbTx.QueryRow(`
		INSERT INTO ledger_transactions
		(reference_number, transaction_type, status, amount, transaction_date, description, metadata, initiated_by, external_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at`,
		txn.ReferenceNumber, txn.TransactionType, txn.Status, txn.Amount, txn.TransactionDate,
		txn.Description, metadataJSON, txn.InitiatedBy, txn.ExternalReference).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, entry := range entries {
		account, err := s.lockAccount(dbTx, entry.AccountID)
		if err != nil {
			return nil, err
		}

		newBalance := account.Balance + entry.Amount

		if account.AccountType == models.AccountTypeUserWallet && newBalance < 0 {
			return nil, &InsufficientFundsError{Available: account.Balance, Requested: -entry.Amount}
		}

		if err := s.createJournalEntry(dbTx, txn.ID, account.ID, entry.Amount, entry.Description, newBalance); err != nil {
			return nil, fmt.Errorf("failed to insert journal entry: %w", err)
		}

		if err := s.updateAccountBalance(dbTx, account.ID, newBalance, account.Version); err != nil {
			return nil, err
		}

		if err := s.appendBalanceHistory(dbTx, account.ID, txn.ID, newBalance); err != nil {
			return nil, fmt.Errorf("failed to insert balance history: %w", err)
		}

		if account.AccountType == models.AccountTypeUserWallet && account.UserID != nil {
			if err := s.mirrorWalletBalance(dbTx, *account.UserID, newBalance); err != nil {
				return nil, fmt.Errorf("failed to mirror wallet balance: %w", err)
			}
		}

		txn.Entries = append(txn.Entries, &models.JournalEntry{
			TransactionID:  txn.ID,
			AccountID:      account.ID,
			Amount:         entry.Amount,
			Description:    entry.Description,
			RunningBalance: newBalance,
		})
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.audit != nil && txn.InitiatedBy != nil {
		s.audit.RecordEntityChange("create", "ledger_transaction", txn.ID, txn.ReferenceNumber, txn.InitiatedBy, map[string]any{
			"transaction_type": txn.TransactionType,
			"amount":           txn.Amount,
			"status":           txn.Status,
		})
	}

	log.Printf("[LEDGER] Transaction %s created: type=%s amount=%.2f entries=%d", txn.ReferenceNumber, txnType, amount, len(entries))
	return txn, nil
}

// UpdateTransactionStatus transitions a transaction through its status state
// machine. The transaction and its entries are never removed.
func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, transactionID int, newStatus models.TransactionStatus, reason string, actorID *int) (*models.LedgerTransaction, error) {
	txn, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if !txn.Status.CanTransitionTo(newStatus) {
		return nil, &ValidationError{Message: fmt.Sprintf("cannot transition transaction from %s to %s", txn.Status, newStatus)}
	}

	// Guard on the status we validated against so concurrent transitions
	// cannot both pass the state machine check
	result, err := s.db.ExecContext(ctx, `
		UPDATE ledger_transactions
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		newStatus, reason, transactionID, txn.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	if rowsAffected == 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("transaction %d status changed concurrently", transactionID)}
	}

	previous := txn.Status
	txn.Status = newStatus
	txn.ErrorMessage = reason

	if s.audit != nil {
		s.audit.RecordEntityChange("update", "ledger_transaction", txn.ID, txn.ReferenceNumber, actorID, map[string]any{
			"previous_status": previous,
			"new_status":      newStatus,
			"reason":          reason,
		})
	}

	log.Printf("[LEDGER] Transaction %s status: %s -> %s", txn.ReferenceNumber, previous, newStatus)
	return txn, nil
}

// GetTransaction fetches one transaction without its entries
func (s *LedgerService) GetTransaction(ctx context.Context, transactionID int) (*models.LedgerTransaction, error) {
	txn := &models.LedgerTransaction{}
	var metadataJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, reference_number, transaction_type, status, amount, transaction_date,
		       COALESCE(description, ''), metadata, initiated_by, COALESCE(external_reference, ''),
		       COALESCE(error_message, ''), is_reconciled, created_at, updated_at
		FROM ledger_transactions
		WHERE id = $1`, transactionID).
		Scan(&txn.ID, &txn.ReferenceNumber, &txn.TransactionType, &txn.Status, &txn.Amount,
			&txn.TransactionDate, &txn.Description, &metadataJSON, &txn.InitiatedBy,
			&txn.ExternalReference, &txn.ErrorMessage, &txn.IsReconciled, &txn.CreatedAt, &txn.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "transaction", Key: transactionID}
	}
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &txn.Metadata)
	}
	return txn, nil
}

// GetTransactionEntries returns the journal entries of one transaction in
// insertion order
func (s *LedgerService) GetTransactionEntries(ctx context.Context, transactionID int) ([]*models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, account_id, amount, COALESCE(description, ''), running_balance, created_at
		FROM journal_entries
		WHERE transaction_id = $1
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.JournalEntry{}
	for rows.Next() {
		entry := &models.JournalEntry{}
		err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.AccountID, &entry.Amount,
			&entry.Description, &entry.RunningBalance, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetTransactionByReference fetches one transaction by its reference number
func (s *LedgerService) GetTransactionByReference(ctx context.Context, reference string) (*models.LedgerTransaction, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM ledger_transactions WHERE reference_number = $1`, reference).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "transaction", Key: reference}
	}
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}

// FindTransactionByExternalReference supports idempotency checks on externally
// referenced operations such as gateway deposits
func (s *LedgerService) FindTransactionByExternalReference(ctx context.Context, externalReference string) (*models.LedgerTransaction, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM ledger_transactions WHERE external_reference = $1
		ORDER BY id LIMIT 1`, externalReference).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "transaction", Key: externalReference}
	}
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, id)
}
