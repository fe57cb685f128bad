package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propvest/backend/internal/models"
)

func lockedAccountRow(id int, accountType models.AccountType, userID any, balance float64, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_type", "user_id", "current_balance", "version"}).
		AddRow(id, accountType, userID, balance, version)
}

// expectEntryApplied sets up the statement sequence one journal entry produces:
// row lock, entry insert, balance update, history append and, for wallet
// accounts, the wallets mirror upsert.
func expectEntryApplied(mock sqlmock.Sqlmock, txnID, accountID int, accountType models.AccountType, userID any, balance float64, version int, amount, newBalance float64) {
	mock.ExpectQuery("FROM ledger_accounts WHERE id = \\$1 FOR UPDATE").
		WithArgs(accountID).
		WillReturnRows(lockedAccountRow(accountID, accountType, userID, balance, version))

	mock.ExpectExec("INSERT INTO journal_entries").
		WithArgs(txnID, accountID, amount, sqlmock.AnyArg(), newBalance, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE ledger_accounts SET current_balance").
		WithArgs(newBalance, sqlmock.AnyArg(), accountID, version).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("INSERT INTO account_balance_history").
		WithArgs(accountID, txnID, newBalance, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if accountType == models.AccountTypeUserWallet && userID != nil {
		mock.ExpectExec("INSERT INTO wallets").
			WithArgs(userID, newBalance, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
}

func TestLedgerService_CreateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, nil, nil)
	ctx := context.Background()
	userID := 7

	t.Run("balanced transaction records running balances", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("INSERT INTO ledger_transactions").
			WithArgs(sqlmock.AnyArg(), models.TxnTypeDeposit, models.TxnStatusCompleted, 1000.0,
				sqlmock.AnyArg(), "Test deposit", sqlmock.AnyArg(), userID, "PSP-001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, time.Now()))

		// Wallet starts at 500, escrow at 200
		expectEntryApplied(mock, 10, 1, models.AccountTypeUserWallet, userID, 500, 1, 1000, 1500)
		expectEntryApplied(mock, 10, 2, models.AccountTypeEscrow, nil, 200, 3, -1000, -800)

		mock.ExpectCommit()

		txn, err := service.CreateTransaction(ctx, models.TxnTypeDeposit, 1000, []models.EntryInput{
			{AccountID: 1, Amount: 1000, Description: "Wallet deposit"},
			{AccountID: 2, Amount: -1000, Description: "Escrow release"},
		}, TransactionOptions{
			Status:            models.TxnStatusCompleted,
			Description:       "Test deposit",
			InitiatedBy:       &userID,
			ExternalReference: "PSP-001",
		})

		require.NoError(t, err)
		assert.Equal(t, 10, txn.ID)
		assert.Equal(t, models.TxnStatusCompleted, txn.Status)
		assert.True(t, strings.HasPrefix(txn.ReferenceNumber, "TRX-"))
		require.Len(t, txn.Entries, 2)
		assert.Equal(t, 1500.0, txn.Entries[0].RunningBalance)
		assert.Equal(t, -800.0, txn.Entries[1].RunningBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbalanced entries rejected before any write", func(t *testing.T) {
		_, err := service.CreateTransaction(ctx, models.TxnTypeDeposit, 1000, []models.EntryInput{
			{AccountID: 1, Amount: 1000},
			{AccountID: 2, Amount: -999},
		}, TransactionOptions{})

		var unbalanced *UnbalancedTransactionError
		require.ErrorAs(t, err, &unbalanced)
		assert.InDelta(t, 1.0, unbalanced.Sum, 0.0001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fewer than two entries rejected", func(t *testing.T) {
		_, err := service.CreateTransaction(ctx, models.TxnTypeAdjustment, 100, []models.EntryInput{
			{AccountID: 1, Amount: 100},
		}, TransactionOptions{})

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := service.CreateTransaction(ctx, models.TxnTypeDeposit, 0, []models.EntryInput{
			{AccountID: 1, Amount: 100},
			{AccountID: 2, Amount: -100},
		}, TransactionOptions{})

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("rollback when an account vanishes mid-transaction", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("INSERT INTO ledger_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, time.Now()))

		expectEntryApplied(mock, 11, 2, models.AccountTypeEscrow, nil, 200, 1, 50, 250)

		mock.ExpectQuery("FROM ledger_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(999).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectRollback()

		_, err := service.CreateTransaction(ctx, models.TxnTypeAdjustment, 50, []models.EntryInput{
			{AccountID: 2, Amount: 50},
			{AccountID: 999, Amount: -50},
		}, TransactionOptions{})

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "account", notFound.Resource)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock conflict aborts the transaction", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("INSERT INTO ledger_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(12, time.Now()))

		mock.ExpectQuery("FROM ledger_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(lockedAccountRow(1, models.AccountTypeUserWallet, userID, 500, 1))

		mock.ExpectExec("INSERT INTO journal_entries").
			WillReturnResult(sqlmock.NewResult(1, 1))

		// Concurrent writer bumped the version between lock and update
		mock.ExpectExec("UPDATE ledger_accounts SET current_balance").
			WithArgs(600.0, sqlmock.AnyArg(), 1, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectRollback()

		_, err := service.CreateTransaction(ctx, models.TxnTypeDeposit, 100, []models.EntryInput{
			{AccountID: 1, Amount: 100},
			{AccountID: 2, Amount: -100},
		}, TransactionOptions{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "optimistic lock failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wallet overdraft blocked under lock", func(t *testing.T) {
		mock.ExpectBegin()

		mock.ExpectQuery("INSERT INTO ledger_transactions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(13, time.Now()))

		mock.ExpectQuery("FROM ledger_accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs(1).
			WillReturnRows(lockedAccountRow(1, models.AccountTypeUserWallet, userID, 100, 1))

		mock.ExpectRollback()

		_, err := service.CreateTransaction(ctx, models.TxnTypeWithdrawal, 500, []models.EntryInput{
			{AccountID: 1, Amount: -500},
			{AccountID: 2, Amount: 500},
		}, TransactionOptions{})

		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 100.0, insufficient.Available)
		assert.Equal(t, 500.0, insufficient.Requested)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_GenerateReferenceNumber(t *testing.T) {
	service := NewLedgerService(nil, nil, nil)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref, err := service.generateReferenceNumber()
		require.NoError(t, err)
		require.Len(t, ref, len("TRX-")+10)
		assert.True(t, strings.HasPrefix(ref, "TRX-"))
		for _, c := range ref[len("TRX-"):] {
			assert.Contains(t, referenceCharset, string(c))
		}
		seen[ref] = true
	}

	assert.Len(t, seen, 100)
}

func transactionRow(id int, status models.TransactionStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "reference_number", "transaction_type", "status", "amount", "transaction_date",
		"description", "metadata", "initiated_by", "external_reference",
		"error_message", "is_reconciled", "created_at", "updated_at",
	}).AddRow(id, "TRX-abc1234567", "withdrawal", status, 250.0, time.Now(),
		"Withdrawal of 250.00 from wallet", nil, 7, "", "", false, time.Now(), time.Now())
}

func TestLedgerService_UpdateTransactionStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, nil, nil)
	ctx := context.Background()
	adminID := 1

	t.Run("pending to completed", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(20).
			WillReturnRows(transactionRow(20, models.TxnStatusPending))

		mock.ExpectExec("UPDATE ledger_transactions SET status = \\$1").
			WithArgs(models.TxnStatusCompleted, "settled", 20, models.TxnStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		txn, err := service.UpdateTransactionStatus(ctx, 20, models.TxnStatusCompleted, "settled", &adminID)
		require.NoError(t, err)
		assert.Equal(t, models.TxnStatusCompleted, txn.Status)
		assert.Equal(t, "settled", txn.ErrorMessage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed to pending rejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(21).
			WillReturnRows(transactionRow(21, models.TxnStatusCompleted))

		_, err := service.UpdateTransactionStatus(ctx, 21, models.TxnStatusPending, "", &adminID)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disputed back to completed", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(22).
			WillReturnRows(transactionRow(22, models.TxnStatusDisputed))

		mock.ExpectExec("UPDATE ledger_transactions SET status = \\$1").
			WithArgs(models.TxnStatusCompleted, "dispute resolved", 22, models.TxnStatusDisputed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		txn, err := service.UpdateTransactionStatus(ctx, 22, models.TxnStatusCompleted, "dispute resolved", &adminID)
		require.NoError(t, err)
		assert.Equal(t, models.TxnStatusCompleted, txn.Status)
	})

	t.Run("concurrent transition loses the status guard", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(23).
			WillReturnRows(transactionRow(23, models.TxnStatusPending))

		// Another admin completed it between the read and the update
		mock.ExpectExec("UPDATE ledger_transactions SET status = \\$1").
			WithArgs(models.TxnStatusFailed, "gateway timeout", 23, models.TxnStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := service.UpdateTransactionStatus(ctx, 23, models.TxnStatusFailed, "gateway timeout", &adminID)

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Contains(t, validation.Message, "changed concurrently")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(404).
			WillReturnError(sql.ErrNoRows)

		_, err := service.UpdateTransactionStatus(ctx, 404, models.TxnStatusCompleted, "", &adminID)

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestLedgerService_GetTransactionEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, nil, nil)

	mock.ExpectQuery("FROM journal_entries WHERE transaction_id = \\$1 ORDER BY id").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "account_id", "amount", "description", "running_balance", "created_at"}).
			AddRow(1, 10, 1, 1000.0, "Wallet deposit", 1500.0, time.Now()).
			AddRow(2, 10, 2, -1000.0, "Escrow release", -800.0, time.Now()))

	entries, err := service.GetTransactionEntries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var sum float64
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Zero(t, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_GetTransactionByReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, nil, nil)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM ledger_transactions WHERE reference_number = \\$1").
			WithArgs("TRX-abc1234567").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))

		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(20).
			WillReturnRows(transactionRow(20, models.TxnStatusCompleted))

		txn, err := service.GetTransactionByReference(context.Background(), "TRX-abc1234567")
		require.NoError(t, err)
		assert.Equal(t, "TRX-abc1234567", txn.ReferenceNumber)
	})

	t.Run("unknown reference", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM ledger_transactions WHERE reference_number = \\$1").
			WithArgs("TRX-missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetTransactionByReference(context.Background(), "TRX-missing")

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestLedgerService_FindTransactionByExternalReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(db, nil, nil)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM ledger_transactions WHERE external_reference = \\$1").
			WithArgs("PSP-001").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE id = \\$1").
			WithArgs(42).
			WillReturnRows(transactionRow(42, models.TxnStatusCompleted))

		txn, err := service.FindTransactionByExternalReference(context.Background(), "PSP-001")
		require.NoError(t, err)
		assert.Equal(t, 42, txn.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM ledger_transactions WHERE external_reference = \\$1").
			WithArgs("PSP-missing").
			WillReturnError(sql.ErrNoRows)

		_, err := service.FindTransactionByExternalReference(context.Background(), "PSP-missing")

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}
