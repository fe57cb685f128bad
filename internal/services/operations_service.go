package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/propvest/backend/internal/config"
	"github.com/propvest/backend/internal/models"
)

// OperationsService exposes the ledger's domain operations: deposits,
// withdrawals, investments and ROI distributions. Each operation resolves its
// accounts, builds a balanced entry set and delegates to the LedgerService.
type OperationsService struct {
	db        *sql.DB
	accounts  *AccountService
	ledger    *LedgerService
	cfg       *config.LedgerConfig
	validator *ValidationHelper
}

func NewOperationsService(db *sql.DB, accounts *AccountService, ledger *LedgerService, cfg *config.LedgerConfig) *OperationsService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	return &OperationsService{
		db:        db,
		accounts:  accounts,
		ledger:    ledger,
		cfg:       cfg,
		validator: NewValidationHelper(),
	}
}

// ROIDistribution is one payout line in a distribution batch
type ROIDistribution struct {
	UserID       int     `json:"userId" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	InvestmentID int     `json:"investmentId" validate:"required"`
}

// ROIFailure reports one distribution line that could not be committed
type ROIFailure struct {
	UserID       int    `json:"userId"`
	InvestmentID int    `json:"investmentId"`
	Error        string `json:"error"`
}

// Deposit credits a user wallet against the platform escrow account. Deposits
// arrive pre-cleared by the payment gateway, so the transaction completes
// immediately.
func (s *OperationsService) Deposit(ctx context.Context, userID int, amount float64, externalReference string) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "deposit amount must be positive"}
	}

	// Idempotency on the gateway reference
	if externalReference != "" {
		if existing, err := s.ledger.FindTransactionByExternalReference(ctx, externalReference); err == nil {
			log.Printf("[OPERATIONS] Duplicate deposit reference %s, returning transaction %s", externalReference, existing.ReferenceNumber)
			return existing, nil
		}
	}

	wallet, err := s.accounts.EnsureUserWalletAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	escrow, err := s.accounts.EnsureSystemAccount(ctx, models.AccountTypeEscrow)
	if err != nil {
		return nil, err
	}

	entries := []models.EntryInput{
		{AccountID: wallet.ID, Amount: amount, Description: "Wallet deposit"},
		{AccountID: escrow.ID, Amount: -amount, Description: "Escrow release for deposit"},
	}

	return s.ledger.CreateTransaction(ctx, models.TxnTypeDeposit, amount, entries, TransactionOptions{
		Status:            models.TxnStatusCompleted,
		Description:       fmt.Sprintf("Deposit of %.2f to wallet", amount),
		InitiatedBy:       &userID,
		ExternalReference: externalReference,
	})
}

// Withdraw debits a user wallet into escrow pending external settlement
func (s *OperationsService) Withdraw(ctx context.Context, userID int, amount float64) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "withdrawal amount must be positive"}
	}

	wallet, err := s.accounts.EnsureUserWalletAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.CurrentBalance < amount {
		return nil, &InsufficientFundsError{Available: wallet.CurrentBalance, Requested: amount}
	}

	escrow, err := s.accounts.EnsureSystemAccount(ctx, models.AccountTypeEscrow)
	if err != nil {
		return nil, err
	}

	entries := []models.EntryInput{
		{AccountID: wallet.ID, Amount: -amount, Description: "Wallet withdrawal"},
		{AccountID: escrow.ID, Amount: amount, Description: "Escrow hold for withdrawal"},
	}

	// Withdrawals stay pending until external settlement approves them
	return s.ledger.CreateTransaction(ctx, models.TxnTypeWithdrawal, amount, entries, TransactionOptions{
		Status:      models.TxnStatusPending,
		Description: fmt.Sprintf("Withdrawal of %.2f from wallet", amount),
		InitiatedBy: &userID,
	})
}

// Invest moves amount from a user wallet into a property funding account,
// splitting off the platform fee as a third balanced leg
func (s *OperationsService) Invest(ctx context.Context, userID, propertyID int, amount float64) (*models.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, &ValidationError{Message: "investment amount must be positive"}
	}

	wallet, err := s.accounts.EnsureUserWalletAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.CurrentBalance < amount {
		return nil, &InsufficientFundsError{Available: wallet.CurrentBalance, Requested: amount}
	}

	funding, err := s.accounts.EnsurePropertyFundingAccount(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	feeAccount, err := s.accounts.EnsureSystemAccount(ctx, models.AccountTypeFeeCollection)
	if err != nil {
		return nil, err
	}

	fee := math.Round(amount*s.cfg.PlatformFeeRate*100) / 100
	investmentAmount := amount - fee

	entries := []models.EntryInput{
		{AccountID: wallet.ID, Amount: -amount, Description: "Investment debit"},
		{AccountID: funding.ID, Amount: investmentAmount, Description: fmt.Sprintf("Investment in property %d", propertyID)},
		{AccountID: feeAccount.ID, Amount: fee, Description: "Platform fee"},
	}

	return s.ledger.CreateTransaction(ctx, models.TxnTypeInvestment, amount, entries, TransactionOptions{
		Status:      models.TxnStatusCompleted,
		Description: fmt.Sprintf("Investment of %.2f in property %d", amount, propertyID),
		Metadata: map[string]any{
			"property_id":       propertyID,
			"platform_fee":      fee,
			"investment_amount": investmentAmount,
		},
		InitiatedBy: &userID,
	})
}

// DistributeROI pays out one batch of returns from the ROI reserve. Each
// distribution commits independently: a failure at line N does not roll back
// lines 1..N-1 already committed. Failures are reported per line.
func (s *OperationsService) DistributeROI(ctx context.Context, propertyID int, distributions []ROIDistribution, initiatedBy *int) ([]*models.LedgerTransaction, []ROIFailure) {
	batchID := uuid.New().String()
	transactions := []*models.LedgerTransaction{}
	failures := []ROIFailure{}

	reserve, err := s.accounts.EnsureSystemAccount(ctx, models.AccountTypeROIReserve)
	if err != nil {
		for _, d := range distributions {
			failures = append(failures, ROIFailure{UserID: d.UserID, InvestmentID: d.InvestmentID, Error: err.Error()})
		}
		return transactions, failures
	}

	for _, dist := range distributions {
		wallet, err := s.accounts.EnsureUserWalletAccount(ctx, dist.UserID)
		if err != nil {
			failures = append(failures, ROIFailure{UserID: dist.UserID, InvestmentID: dist.InvestmentID, Error: err.Error()})
			continue
		}

		entries := []models.EntryInput{
			{AccountID: wallet.ID, Amount: dist.Amount, Description: "ROI payout"},
			{AccountID: reserve.ID, Amount: -dist.Amount, Description: fmt.Sprintf("ROI reserve release for property %d", propertyID)},
		}

		txn, err := s.ledger.CreateTransaction(ctx, models.TxnTypeROIDistribution, dist.Amount, entries, TransactionOptions{
			Status:      models.TxnStatusCompleted,
			Description: fmt.Sprintf("ROI distribution for property %d", propertyID),
			Metadata: map[string]any{
				"batch_id":      batchID,
				"property_id":   propertyID,
				"investment_id": dist.InvestmentID,
			},
			InitiatedBy: initiatedBy,
		})
		if err != nil {
			log.Printf("[OPERATIONS] ROI distribution failed for user %d investment %d: %v", dist.UserID, dist.InvestmentID, err)
			failures = append(failures, ROIFailure{UserID: dist.UserID, InvestmentID: dist.InvestmentID, Error: err.Error()})
			continue
		}
		transactions = append(transactions, txn)
	}

	log.Printf("[OPERATIONS] ROI batch %s for property %d: %d succeeded, %d failed", batchID, propertyID, len(transactions), len(failures))
	return transactions, failures
}

// HTTP handlers

func requestUserID(r *http.Request) (int, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// callerMayViewTransaction applies the owner-or-admin rule: a transaction is
// visible to the user who initiated it and to admins. System transactions with
// no initiator are admin-only.
func callerMayViewTransaction(r *http.Request, callerID int, txn *models.LedgerTransaction) bool {
	if role, _ := r.Context().Value("userRole").(string); role == "admin" {
		return true
	}
	return txn.InitiatedBy != nil && *txn.InitiatedBy == callerID
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Message: "invalid request body"}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &ValidationError{Message: "request body must only contain a single JSON object"}
	}
	return nil
}

// HandleDeposit credits the caller's wallet
// @Summary Deposit to own wallet
// @Description Credit the authenticated user's wallet with a cleared deposit
// @Tags ledger
// @Accept json
// @Produce json
// @Param deposit body object{amount=float64,externalReference=string} true "Deposit data"
// @Success 201 {object} models.LedgerTransaction
// @Failure 400 {object} ErrorResponse
// @Router /ledger/deposit [post]
func (s *OperationsService) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount            float64 `json:"amount" validate:"required,gt=0"`
		ExternalReference string  `json:"externalReference" validate:"omitempty,max=255"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := s.Deposit(r.Context(), userID, req.Amount, req.ExternalReference)
	if err != nil {
		log.Printf("[OPERATIONS] Deposit failed for user %d: %v", userID, err)
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": txn,
	})
}

// HandleWithdraw debits the caller's wallet
// @Summary Withdraw from own wallet
// @Description Debit the authenticated user's wallet; settlement is external
// @Tags ledger
// @Accept json
// @Produce json
// @Param withdrawal body object{amount=float64} true "Withdrawal data"
// @Success 201 {object} models.LedgerTransaction
// @Failure 400 {object} ErrorResponse
// @Router /ledger/withdraw [post]
func (s *OperationsService) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := s.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		log.Printf("[OPERATIONS] Withdrawal failed for user %d: %v", userID, err)
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": txn,
	})
}

// HandleInvest moves funds from the caller's wallet into a property
// @Summary Invest in a property
// @Description Move wallet funds into a property funding account minus the platform fee
// @Tags ledger
// @Accept json
// @Produce json
// @Param investment body object{propertyId=int,amount=float64} true "Investment data"
// @Success 201 {object} models.LedgerTransaction
// @Failure 400 {object} ErrorResponse
// @Router /ledger/invest [post]
func (s *OperationsService) HandleInvest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		PropertyID int     `json:"propertyId" validate:"required"`
		Amount     float64 `json:"amount" validate:"required,gt=0"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := s.Invest(r.Context(), userID, req.PropertyID, req.Amount)
	if err != nil {
		log.Printf("[OPERATIONS] Investment failed for user %d property %d: %v", userID, req.PropertyID, err)
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": txn,
	})
}

// HandleDistributeROI runs an admin-only batch payout
// @Summary Distribute ROI
// @Description Pay out a batch of returns from the ROI reserve; each line commits independently
// @Tags ledger
// @Accept json
// @Produce json
// @Param batch body object{propertyId=int,distributions=[]ROIDistribution} true "Distribution batch"
// @Success 201 {object} object{transactions=[]models.LedgerTransaction,failed=[]ROIFailure}
// @Failure 400 {object} ErrorResponse
// @Router /ledger/distribute-roi [post]
func (s *OperationsService) HandleDistributeROI(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		PropertyID    int               `json:"propertyId" validate:"required"`
		Distributions []ROIDistribution `json:"distributions" validate:"required,min=1,max=500,dive"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	transactions, failures := s.DistributeROI(r.Context(), req.PropertyID, req.Distributions, &adminID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"failed":       failures,
		"summary": map[string]int{
			"total":     len(req.Distributions),
			"succeeded": len(transactions),
			"failed":    len(failures),
		},
	})
}

// HandleUpdateStatus is the admin-only transaction status transition endpoint
// @Summary Update transaction status
// @Description Transition a transaction through its status state machine
// @Tags ledger
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Param update body object{status=string,reason=string} true "Status update"
// @Success 200 {object} models.LedgerTransaction
// @Failure 404 {object} ErrorResponse
// @Router /ledger/transaction/{id}/status [patch]
func (s *OperationsService) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=pending completed failed cancelled disputed"`
		Reason string `json:"reason" validate:"omitempty,max=500"`
	}
	if err := decodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := s.ledger.UpdateTransactionStatus(r.Context(), transactionID, models.TransactionStatus(req.Status), req.Reason, &adminID)
	if err != nil {
		log.Printf("[OPERATIONS] Status update failed for transaction %d: %v", transactionID, err)
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": txn,
	})
}

// HandleUserTransactions lists a wallet's transaction history with pagination
// @Summary User transaction history
// @Description Paginated ledger history for one user; owner or admin only
// @Tags ledger
// @Produce json
// @Param userId path int true "User ID"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param status query string false "Filter by status"
// @Param transactionType query string false "Filter by type"
// @Param startDate query string false "RFC3339 lower bound"
// @Param endDate query string false "RFC3339 upper bound"
// @Success 200 {object} object{transactions=[]models.LedgerTransaction,pagination=object}
// @Failure 403 {object} ErrorResponse
// @Router /ledger/user-transactions/{userId} [get]
func (s *OperationsService) HandleUserTransactions(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	role, _ := r.Context().Value("userRole").(string)

	userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil {
		SendErrorResponse(w, "invalid user id", http.StatusBadRequest, nil)
		return
	}

	if callerID != userID && role != "admin" {
		SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	page := 1
	limit := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	conditions := []string{"initiated_by = $1"}
	args := []any{userID}
	argIndex := 2

	if status := r.URL.Query().Get("status"); status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, status)
		argIndex++
	}
	if txnType := r.URL.Query().Get("transactionType"); txnType != "" {
		if !models.IsValidTransactionType(txnType) {
			SendErrorResponse(w, "invalid transactionType", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("transaction_type = $%d", argIndex))
		args = append(args, txnType)
		argIndex++
	}
	if startDate := r.URL.Query().Get("startDate"); startDate != "" {
		t, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			SendErrorResponse(w, "invalid startDate", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("transaction_date >= $%d", argIndex))
		args = append(args, t)
		argIndex++
	}
	if endDate := r.URL.Query().Get("endDate"); endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			SendErrorResponse(w, "invalid endDate", http.StatusBadRequest, nil)
			return
		}
		conditions = append(conditions, fmt.Sprintf("transaction_date <= $%d", argIndex))
		args = append(args, t)
		argIndex++
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := s.db.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM ledger_transactions`+where, args...).Scan(&total); err != nil {
		log.Printf("[OPERATIONS] Failed to count transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	query := `
		SELECT id, reference_number, transaction_type, status, amount, transaction_date,
		       COALESCE(description, ''), initiated_by, COALESCE(external_reference, ''), is_reconciled, created_at
		FROM ledger_transactions` + where +
		fmt.Sprintf(" ORDER BY transaction_date DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Printf("[OPERATIONS] Failed to fetch transactions for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.LedgerTransaction{}
	for rows.Next() {
		var txn models.LedgerTransaction
		err := rows.Scan(&txn.ID, &txn.ReferenceNumber, &txn.TransactionType, &txn.Status, &txn.Amount,
			&txn.TransactionDate, &txn.Description, &txn.InitiatedBy, &txn.ExternalReference,
			&txn.IsReconciled, &txn.CreatedAt)
		if err != nil {
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, txn)
	}

	totalPages := (total + limit - 1) / limit

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"pagination": map[string]int{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// HandleGetTransactionByReference fetches one transaction by reference number
// @Summary Get transaction by reference
// @Description Fetch a ledger transaction and its journal entries by reference number
// @Tags ledger
// @Produce json
// @Param reference path string true "Reference number"
// @Success 200 {object} models.LedgerTransaction
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /ledger/transaction/reference/{reference} [get]
func (s *OperationsService) HandleGetTransactionByReference(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	reference := chi.URLParam(r, "reference")

	txn, err := s.ledger.GetTransactionByReference(r.Context(), reference)
	if err != nil {
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	if !callerMayViewTransaction(r, callerID, txn) {
		SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	entries, err := s.ledger.GetTransactionEntries(r.Context(), txn.ID)
	if err != nil {
		log.Printf("[OPERATIONS] Failed to fetch entries for transaction %s: %v", reference, err)
		SendErrorResponse(w, "Failed to fetch transaction entries", http.StatusInternalServerError, nil)
		return
	}
	txn.Entries = entries

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

// HandleGetTransaction fetches one transaction with its entries
// @Summary Get transaction
// @Description Fetch a ledger transaction and its journal entries by ID
// @Tags ledger
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} models.LedgerTransaction
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /ledger/transaction/{id} [get]
func (s *OperationsService) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requestUserID(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		SendErrorResponse(w, "invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	txn, err := s.ledger.GetTransaction(r.Context(), transactionID)
	if err != nil {
		SendErrorResponse(w, err.Error(), StatusCodeForError(err), nil)
		return
	}

	if !callerMayViewTransaction(r, callerID, txn) {
		SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	entries, err := s.ledger.GetTransactionEntries(r.Context(), transactionID)
	if err != nil {
		log.Printf("[OPERATIONS] Failed to fetch entries for transaction %d: %v", transactionID, err)
		SendErrorResponse(w, "Failed to fetch transaction entries", http.StatusInternalServerError, nil)
		return
	}
	txn.Entries = entries

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}
