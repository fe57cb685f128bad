package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propvest/backend/internal/models"
)

func accountRows(id int, accountType models.AccountType, name string, userID, propertyID any, balance float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_type", "name", "description", "user_id", "property_id",
		"current_balance", "currency", "version", "is_active", "created_at", "updated_at",
	}).AddRow(id, accountType, name, "", userID, propertyID, balance, "NGN", 1, true, time.Now(), time.Now())
}

func TestAccountService_EnsureUserWalletAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)
	ctx := context.Background()

	t.Run("existing account returned without insert", func(t *testing.T) {
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND user_id = \\$2").
			WithArgs(models.AccountTypeUserWallet, 7).
			WillReturnRows(accountRows(1, models.AccountTypeUserWallet, "Wallet - Ada Obi", 7, nil, 500))

		account, err := service.EnsureUserWalletAccount(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 1, account.ID)
		assert.Equal(t, 500.0, account.CurrentBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("created lazily on first use", func(t *testing.T) {
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND user_id = \\$2").
			WithArgs(models.AccountTypeUserWallet, 8).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT first_name, last_name FROM users WHERE id = \\$1").
			WithArgs(8).
			WillReturnRows(sqlmock.NewRows([]string{"first_name", "last_name"}).AddRow("Chidi", "Eze"))

		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(models.AccountTypeUserWallet, "Wallet - Chidi Eze", "User wallet account", 8, "NGN", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		mock.ExpectExec("INSERT INTO wallets").
			WithArgs(8, "NGN", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		// Re-read after insert; also covers a lost creation race
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND user_id = \\$2").
			WithArgs(models.AccountTypeUserWallet, 8).
			WillReturnRows(accountRows(2, models.AccountTypeUserWallet, "Wallet - Chidi Eze", 8, nil, 0))

		account, err := service.EnsureUserWalletAccount(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, 2, account.ID)
		assert.Zero(t, account.CurrentBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND user_id = \\$2").
			WithArgs(models.AccountTypeUserWallet, 999).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT first_name, last_name FROM users WHERE id = \\$1").
			WithArgs(999).
			WillReturnError(sql.ErrNoRows)

		_, err := service.EnsureUserWalletAccount(ctx, 999)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "user", notFound.Resource)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_EnsurePropertyFundingAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)
	ctx := context.Background()

	t.Run("created with property title", func(t *testing.T) {
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND property_id = \\$2").
			WithArgs(models.AccountTypePropertyFunding, 9).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT title FROM properties WHERE id = \\$1").
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Lekki Heights"))

		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(models.AccountTypePropertyFunding, "Funding - Lekki Heights", "Property funding account", 9, "NGN", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(3, 1))

		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND property_id = \\$2").
			WithArgs(models.AccountTypePropertyFunding, 9).
			WillReturnRows(accountRows(3, models.AccountTypePropertyFunding, "Funding - Lekki Heights", nil, 9, 0))

		account, err := service.EnsurePropertyFundingAccount(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 3, account.ID)
		require.NotNil(t, account.PropertyID)
		assert.Equal(t, 9, *account.PropertyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown property", func(t *testing.T) {
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND property_id = \\$2").
			WithArgs(models.AccountTypePropertyFunding, 404).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT title FROM properties WHERE id = \\$1").
			WithArgs(404).
			WillReturnError(sql.ErrNoRows)

		_, err := service.EnsurePropertyFundingAccount(ctx, 404)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "property", notFound.Resource)
	})
}

func TestAccountService_EnsureSystemAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)
	ctx := context.Background()

	t.Run("singleton created once", func(t *testing.T) {
		mock.ExpectQuery("user_id IS NULL AND property_id IS NULL").
			WithArgs(models.AccountTypeEscrow).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(models.AccountTypeEscrow, "escrow", "Platform system account", "NGN", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(4, 1))

		mock.ExpectQuery("user_id IS NULL AND property_id IS NULL").
			WithArgs(models.AccountTypeEscrow).
			WillReturnRows(accountRows(4, models.AccountTypeEscrow, "escrow", nil, nil, 0))

		account, err := service.EnsureSystemAccount(ctx, models.AccountTypeEscrow)
		require.NoError(t, err)
		assert.Equal(t, 4, account.ID)
		assert.Nil(t, account.UserID)
		assert.Nil(t, account.PropertyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing singleton reused", func(t *testing.T) {
		mock.ExpectQuery("user_id IS NULL AND property_id IS NULL").
			WithArgs(models.AccountTypeFeeCollection).
			WillReturnRows(accountRows(5, models.AccountTypeFeeCollection, "fee_collection", nil, nil, 120.50))

		account, err := service.EnsureSystemAccount(ctx, models.AccountTypeFeeCollection)
		require.NoError(t, err)
		assert.Equal(t, 5, account.ID)
		assert.Equal(t, 120.50, account.CurrentBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountService_FindAccountByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAccountService(db, nil)
	ctx := context.Background()

	t.Run("lookup never creates", func(t *testing.T) {
		userID := 7
		mock.ExpectQuery("FROM ledger_accounts WHERE account_type = \\$1 AND user_id = \\$2").
			WithArgs(models.AccountTypeUserWallet, 7).
			WillReturnError(sql.ErrNoRows)

		_, err := service.FindAccountByType(ctx, models.AccountTypeUserWallet, &userID, nil)

		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("system account lookup", func(t *testing.T) {
		mock.ExpectQuery("user_id IS NULL AND property_id IS NULL").
			WithArgs(models.AccountTypeROIReserve).
			WillReturnRows(accountRows(6, models.AccountTypeROIReserve, "roi_reserve", nil, nil, 10000))

		account, err := service.FindAccountByType(ctx, models.AccountTypeROIReserve, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 6, account.ID)
	})
}
