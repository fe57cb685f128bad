package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/propvest/backend/internal/config"
	"github.com/propvest/backend/internal/models"
)

// AccountService resolves chart-of-accounts rows. Accounts are created lazily
// on first use and never deleted; the uniqueness indexes on (type, owner) make
// concurrent ensures converge on a single row.
type AccountService struct {
	db  *sql.DB
	cfg *config.LedgerConfig
}

func NewAccountService(db *sql.DB, cfg *config.LedgerConfig) *AccountService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	return &AccountService{db: db, cfg: cfg}
}

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.AccountType, &account.Name, &account.Description,
		&account.UserID, &account.PropertyID, &account.CurrentBalance, &account.Currency,
		&account.Version, &account.IsActive, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

const accountColumns = `id, account_type, name, COALESCE(description, ''), user_id, property_id,
	current_balance, currency, version, is_active, created_at, updated_at`

// EnsureUserWalletAccount returns the single user_wallet account for userID,
// creating it (and the legacy wallets row) on first use
func (s *AccountService) EnsureUserWalletAccount(ctx context.Context, userID int) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND user_id = $2`,
		models.AccountTypeUserWallet, userID))
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	var firstName, lastName string
	err = s.db.QueryRowContext(ctx, `SELECT first_name, last_name FROM users WHERE id = $1`, userID).
		Scan(&firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "user", Key: userID}
	}
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("Wallet - %s %s", firstName, lastName)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (account_type, name, description, user_id, current_balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $6)
		ON CONFLICT (account_type, user_id) WHERE user_id IS NOT NULL DO NOTHING`,
		models.AccountTypeUserWallet, name, "User wallet account", userID, s.cfg.DefaultCurrency, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet account: %w", err)
	}

	// Legacy read table for wallet balance lookups
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance, currency, updated_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, s.cfg.DefaultCurrency, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet row: %w", err)
	}

	log.Printf("[ACCOUNTS] Created user_wallet account for user %d", userID)

	// Re-read covers the lost-race case: another request may have inserted first
	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND user_id = $2`,
		models.AccountTypeUserWallet, userID))
}

// EnsurePropertyFundingAccount returns the single property_funding account for
// propertyID, creating it on first use
func (s *AccountService) EnsurePropertyFundingAccount(ctx context.Context, propertyID int) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND property_id = $2`,
		models.AccountTypePropertyFunding, propertyID))
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	var title string
	err = s.db.QueryRowContext(ctx, `SELECT title FROM properties WHERE id = $1`, propertyID).Scan(&title)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "property", Key: propertyID}
	}
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (account_type, name, description, property_id, current_balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $6)
		ON CONFLICT (account_type, property_id) WHERE property_id IS NOT NULL DO NOTHING`,
		models.AccountTypePropertyFunding, "Funding - "+title, "Property funding account", propertyID, s.cfg.DefaultCurrency, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create funding account: %w", err)
	}

	log.Printf("[ACCOUNTS] Created property_funding account for property %d", propertyID)

	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND property_id = $2`,
		models.AccountTypePropertyFunding, propertyID))
}

// EnsureSystemAccount returns the ownerless singleton account of the given
// type (escrow, fee_collection, roi_reserve, investment_pool, platform_revenue)
func (s *AccountService) EnsureSystemAccount(ctx context.Context, accountType models.AccountType) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND user_id IS NULL AND property_id IS NULL`,
		accountType))
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (account_type, name, description, current_balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $5)
		ON CONFLICT (account_type) WHERE user_id IS NULL AND property_id IS NULL DO NOTHING`,
		accountType, string(accountType), "Platform system account", s.cfg.DefaultCurrency, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create system account: %w", err)
	}

	log.Printf("[ACCOUNTS] Created system account %s", accountType)

	return scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE account_type = $1 AND user_id IS NULL AND property_id IS NULL`,
		accountType))
}

// FindAccountByType is a pure lookup; it never creates
func (s *AccountService) FindAccountByType(ctx context.Context, accountType models.AccountType, userID, propertyID *int) (*models.Account, error) {
	var row *sql.Row
	switch {
	case userID != nil:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+accountColumns+` FROM ledger_accounts
			WHERE account_type = $1 AND user_id = $2`, accountType, *userID)
	case propertyID != nil:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+accountColumns+` FROM ledger_accounts
			WHERE account_type = $1 AND property_id = $2`, accountType, *propertyID)
	default:
		row = s.db.QueryRowContext(ctx, `
			SELECT `+accountColumns+` FROM ledger_accounts
			WHERE account_type = $1 AND user_id IS NULL AND property_id IS NULL`, accountType)
	}

	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "account", Key: string(accountType)}
	}
	return account, err
}

// GetAccount fetches one account by id
func (s *AccountService) GetAccount(ctx context.Context, accountID int) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM ledger_accounts WHERE id = $1`, accountID))
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "account", Key: accountID}
	}
	return account, err
}

// ListAccounts returns the chart of accounts
// @Summary List chart of accounts
// @Description Get ledger accounts with optional type filter
// @Tags accounts
// @Produce json
// @Param accountType query string false "Filter by account type"
// @Param includeBalances query bool false "Include current balances (default true)"
// @Success 200 {object} object{accounts=[]models.Account,count=int}
// @Failure 400 {object} ErrorResponse
// @Router /ledger/accounts [get]
func (s *AccountService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accountType := r.URL.Query().Get("accountType")
	includeBalances := r.URL.Query().Get("includeBalances") != "false"

	if accountType != "" && !models.IsValidAccountType(accountType) {
		SendErrorResponse(w, "invalid accountType", http.StatusBadRequest, nil)
		return
	}

	query := `SELECT ` + accountColumns + ` FROM ledger_accounts`
	args := []any{}
	if accountType != "" {
		query += ` WHERE account_type = $1`
		args = append(args, accountType)
	}
	query += ` ORDER BY account_type, id`

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[ACCOUNTS] Failed to list accounts: %v", err)
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	accounts := []map[string]any{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
			return
		}
		item := map[string]any{
			"id":           account.ID,
			"account_type": account.AccountType,
			"name":         account.Name,
			"currency":     account.Currency,
			"is_active":    account.IsActive,
		}
		if account.UserID != nil {
			item["user_id"] = *account.UserID
		}
		if account.PropertyID != nil {
			item["property_id"] = *account.PropertyID
		}
		if includeBalances {
			item["current_balance"] = account.CurrentBalance
		}
		accounts = append(accounts, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetBalanceHistory returns the point-in-time balance series of an account
// @Summary Account balance history
// @Description Per-transaction balance snapshots for an account
// @Tags accounts
// @Produce json
// @Param accountId path int true "Account ID"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {object} object{history=[]models.AccountBalanceHistory,count=int}
// @Failure 404 {object} ErrorResponse
// @Router /ledger/accounts/{accountId}/balance-history [get]
func (s *AccountService) GetBalanceHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(chi.URLParam(r, "accountId"))
	if err != nil {
		SendErrorResponse(w, "invalid account id", http.StatusBadRequest, nil)
		return
	}

	if _, err := s.GetAccount(r.Context(), accountID); err != nil {
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, account_id, transaction_id, balance, created_at
		FROM account_balance_history
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		log.Printf("[ACCOUNTS] Failed to fetch balance history for account %d: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch balance history", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	history := []models.AccountBalanceHistory{}
	for rows.Next() {
		var h models.AccountBalanceHistory
		if err := rows.Scan(&h.ID, &h.AccountID, &h.TransactionID, &h.Balance, &h.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch balance history", http.StatusInternalServerError, nil)
			return
		}
		history = append(history, h)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"history": history,
		"count":   len(history),
	})
}
