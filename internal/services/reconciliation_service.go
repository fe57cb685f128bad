package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/propvest/backend/internal/audit"
	"github.com/propvest/backend/internal/config"
	"github.com/propvest/backend/internal/models"
)

// ReconciliationService compares derived balances against expectations and
// assembles financial statement views over the ledger.
type ReconciliationService struct {
	db        *sql.DB
	accounts  *AccountService
	cfg       *config.LedgerConfig
	audit     *audit.Logger
	validator *ValidationHelper
}

func NewReconciliationService(db *sql.DB, accounts *AccountService, cfg *config.LedgerConfig, auditLogger *audit.Logger) *ReconciliationService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	return &ReconciliationService{
		db:        db,
		accounts:  accounts,
		cfg:       cfg,
		audit:     auditLogger,
		validator: NewValidationHelper(),
	}
}

// ReconcileAccount derives an account's actual balance from its journal
// entries and records the comparison against expectedBalance
func (s *ReconciliationService) ReconcileAccount(ctx context.Context, accountID int, expectedBalance float64, notes string, reconciledBy *int) (*models.Reconciliation, error) {
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var actualBalance float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM journal_entries WHERE account_id = $1`, accountID).
		Scan(&actualBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account balance: %w", err)
	}

	discrepancy := actualBalance - expectedBalance
	status := models.ReconStatusMatched
	if math.Abs(discrepancy) >= s.cfg.ReconciliationTolerance {
		status = models.ReconStatusDiscrepancy
	}

	recon := &models.Reconciliation{
		AccountID:       accountID,
		ExpectedBalance: expectedBalance,
		ActualBalance:   actualBalance,
		Discrepancy:     discrepancy,
		Status:          status,
		Notes:           notes,
		ReconciledBy:    reconciledBy,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reconciliations (account_id, expected_balance, actual_balance, discrepancy, status, notes, reconciled_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`,
		recon.AccountID, recon.ExpectedBalance, recon.ActualBalance, recon.Discrepancy,
		recon.Status, recon.Notes, recon.ReconciledBy).
		Scan(&recon.ID, &recon.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record reconciliation: %w", err)
	}

	if status == models.ReconStatusDiscrepancy {
		log.Printf("[RECONCILE] Discrepancy on account %d: expected %.2f actual %.2f", accountID, expectedBalance, actualBalance)
		if s.audit != nil {
			s.audit.RecordEntityChange("reconcile", "ledger_account", accountID, "", reconciledBy, map[string]any{
				"expected_balance": expectedBalance,
				"actual_balance":   actualBalance,
				"discrepancy":      discrepancy,
			})
		}
	}

	return recon, nil
}

// GenerateBalanceSheet groups cached account balances by type
func (s *ReconciliationService) GenerateBalanceSheet(ctx context.Context, asOf time.Time) (*models.BalanceSheet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_type, COALESCE(SUM(current_balance), 0)
		FROM ledger_accounts
		WHERE is_active = TRUE
		GROUP BY account_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]float64{}
	for rows.Next() {
		var accountType string
		var total float64
		if err := rows.Scan(&accountType, &total); err != nil {
			return nil, err
		}
		totals[accountType] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assets := totals[string(models.AccountTypeUserWallet)] + totals[string(models.AccountTypePropertyFunding)]
	liabilities := totals[string(models.AccountTypeEscrow)]

	return &models.BalanceSheet{
		AsOf:         asOf,
		TotalsByType: totals,
		Assets:       assets,
		Liabilities:  liabilities,
		Equity:       assets - liabilities,
	}, nil
}

// GenerateIncomeStatement sums collected fees and breaks transactions down by
// type within the period
func (s *ReconciliationService) GenerateIncomeStatement(ctx context.Context, startDate, endDate time.Time) (*models.IncomeStatement, error) {
	var totalRevenue float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(je.amount), 0)
		FROM journal_entries je
		JOIN ledger_accounts a ON a.id = je.account_id
		WHERE a.account_type = $1 AND je.amount > 0 AND je.created_at >= $2 AND je.created_at <= $3`,
		models.AccountTypeFeeCollection, startDate, endDate).
		Scan(&totalRevenue)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_type, COUNT(*), COALESCE(SUM(amount), 0)
		FROM ledger_transactions
		WHERE transaction_date >= $1 AND transaction_date <= $2
		GROUP BY transaction_type
		ORDER BY transaction_type`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := []models.TransactionTypeBreakdown{}
	for rows.Next() {
		var b models.TransactionTypeBreakdown
		if err := rows.Scan(&b.TransactionType, &b.Count, &b.TotalAmount); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.IncomeStatement{
		StartDate:    startDate,
		EndDate:      endDate,
		TotalRevenue: totalRevenue,
		Breakdown:    breakdown,
	}, nil
}

// HandleReconcileAccount is the admin-only reconciliation endpoint
// @Summary Reconcile an account
// @Description Compare an account's derived balance against an expected value
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param accountId path int true "Account ID"
// @Param reconciliation body object{expectedBalance=float64,notes=string} true "Expected balance"
// @Success 200 {object} models.Reconciliation
// @Failure 400 {object} ErrorResponse
// @Router /ledger/reconcile/{accountId} [post]
func (s *ReconciliationService) HandleReconcileAccount(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.Atoi(chi.URLParam(r, "accountId"))
	if err != nil {
		SendErrorResponse(w, "invalid account id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		ExpectedBalance *float64 `json:"expectedBalance" validate:"required"`
		Notes           string   `json:"notes" validate:"omitempty,max=500"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	recon, err := s.ReconcileAccount(r.Context(), accountID, *req.ExpectedBalance, req.Notes, &adminID)
	if err != nil {
		log.Printf("[RECONCILE] Reconciliation failed for account %d: %v", accountID, err)
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recon)
}

// HandleFinancialStatement serves balance and income statement views
// @Summary Financial statement
// @Description Generate a balance sheet or income statement over the ledger
// @Tags reconciliation
// @Produce json
// @Param type path string true "Statement type: balance or income"
// @Param asOfDate query string false "Balance sheet as-of date (RFC3339)"
// @Param startDate query string false "Income statement start (RFC3339, required for income)"
// @Param endDate query string false "Income statement end (RFC3339, defaults to now)"
// @Success 200 {object} models.BalanceSheet
// @Failure 400 {object} ErrorResponse
// @Router /ledger/financial-statement/{type} [get]
func (s *ReconciliationService) HandleFinancialStatement(w http.ResponseWriter, r *http.Request) {
	statementType := chi.URLParam(r, "type")

	switch statementType {
	case "balance":
		asOf := time.Now()
		if asOfStr := r.URL.Query().Get("asOfDate"); asOfStr != "" {
			t, err := time.Parse(time.RFC3339, asOfStr)
			if err != nil {
				SendErrorResponse(w, "invalid asOfDate", http.StatusBadRequest, nil)
				return
			}
			asOf = t
		}

		statement, err := s.GenerateBalanceSheet(r.Context(), asOf)
		if err != nil {
			log.Printf("[RECONCILE] Failed to generate balance sheet: %v", err)
			SendErrorResponse(w, "Failed to generate statement", http.StatusInternalServerError, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statement)

	case "income":
		startStr := r.URL.Query().Get("startDate")
		if startStr == "" {
			SendErrorResponse(w, "startDate is required for income statements", http.StatusBadRequest, nil)
			return
		}
		startDate, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			SendErrorResponse(w, "invalid startDate", http.StatusBadRequest, nil)
			return
		}

		endDate := time.Now()
		if endStr := r.URL.Query().Get("endDate"); endStr != "" {
			endDate, err = time.Parse(time.RFC3339, endStr)
			if err != nil {
				SendErrorResponse(w, "invalid endDate", http.StatusBadRequest, nil)
				return
			}
		}

		statement, err := s.GenerateIncomeStatement(r.Context(), startDate, endDate)
		if err != nil {
			log.Printf("[RECONCILE] Failed to generate income statement: %v", err)
			SendErrorResponse(w, "Failed to generate statement", http.StatusInternalServerError, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statement)

	default:
		SendErrorResponse(w, "statement type must be 'balance' or 'income'", http.StatusBadRequest, nil)
	}
}
