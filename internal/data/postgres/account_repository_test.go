package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/finance-ledger/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	acc := &account.Account{
		ID:        uuid.New(),
		Name:      "Operating Account",
		Balance:   100000,
		Currency:  "GBP",
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO cash_accounts \(id, name, balance, currency, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Name, acc.Balance, acc.Currency, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Name, acc.Balance, acc.Currency, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create cash account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:        accID,
		Name:      "Operating Account",
		Balance:   100000,
		Currency:  "GBP",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		SELECT id, name, balance, currency, version, created_at, updated_at
		FROM cash_accounts
		WHERE id = \$1
	`
	rows := pgxmock.NewRows([]string{"id", "name", "balance", "currency", "version", "created_at", "updated_at"}).
		AddRow(expectedAccount.ID, expectedAccount.Name, expectedAccount.Balance, expectedAccount.Currency, expectedAccount.Version, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var accNotFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &accNotFoundErr)
		assert.Equal(t, accID, accNotFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get cash account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	now := time.Now()
	accToUpdate := &account.Account{
		ID:        uuid.New(),
		Name:      "Renamed Account",
		Balance:   150000,
		Currency:  "EUR",
		Version:   2,
		UpdatedAt: now,
	}
	previousVersion := accToUpdate.Version - 1

	query := `
		UPDATE cash_accounts
		SET name = \$1, balance = \$2, currency = \$3, version = \$4, updated_at = \$5
		WHERE id = \$6 AND version = \$7
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(accToUpdate.Name, accToUpdate.Balance, accToUpdate.Currency, accToUpdate.Version, accToUpdate.UpdatedAt, accToUpdate.ID, previousVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, accToUpdate)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(accToUpdate.Name, accToUpdate.Balance, accToUpdate.Currency, accToUpdate.Version, accToUpdate.UpdatedAt, accToUpdate.ID, previousVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, accToUpdate)
		assert.Error(t, err)
		var concurrentModErr account.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, accToUpdate.ID, concurrentModErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(accToUpdate.Name, accToUpdate.Balance, accToUpdate.Currency, accToUpdate.Version, accToUpdate.UpdatedAt, accToUpdate.ID, previousVersion).
			WillReturnError(dbErr)

		err := repo.Update(ctx, accToUpdate)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update cash account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ApplyDelta(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	delta := int64(-2500)
	currentVersion := 3

	query := `
		UPDATE cash_accounts
		SET balance = balance \+ \$1, version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$2 AND version = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(delta, accID, currentVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.ApplyDelta(ctx, accID, delta, currentVersion)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(delta, accID, currentVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ApplyDelta(ctx, accID, delta, currentVersion)
		assert.Error(t, err)
		var concurrentModErr account.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, accID, concurrentModErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("apply delta db error")
		mock.ExpectExec(query).
			WithArgs(delta, accID, currentVersion).
			WillReturnError(dbErr)

		err := repo.ApplyDelta(ctx, accID, delta, currentVersion)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to adjust cash account balance")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:        accID,
		Name:      "Reserve Account",
		Balance:   200000,
		Currency:  "GBP",
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		SELECT id, name, balance, currency, version, created_at, updated_at
		FROM cash_accounts
		WHERE id = \$1
		FOR UPDATE
	`
	rows := pgxmock.NewRows([]string{"id", "name", "balance", "currency", "version", "created_at", "updated_at"}).
		AddRow(expectedAccount.ID, expectedAccount.Name, expectedAccount.Balance, expectedAccount.Currency, expectedAccount.Version, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var accNotFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &accNotFoundErr)
		assert.Equal(t, accID, accNotFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to lock cash account for update")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &AccountRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*AccountRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*AccountRepository).querier)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
