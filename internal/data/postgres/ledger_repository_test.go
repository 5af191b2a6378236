package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
)

var entryColumnNames = []string{
	"id", "kind", "amount", "paid_amount", "remaining_amount", "payment_status",
	"customer_id", "category", "description", "entry_date", "payment_history", "refund_history",
	"account_from", "account_to", "group_id", "version", "created_at", "created_by", "updated_at", "updated_by",
}

func testEntry(t *testing.T, customerID uuid.UUID) *ledger.Entry {
	t.Helper()
	now := time.Now()
	return &ledger.Entry{
		ID:              uuid.New(),
		Kind:            ledger.KindOutstanding,
		Amount:          5000,
		PaidAmount:      0,
		RemainingAmount: 5000,
		Status:          ledger.StatusUnpaid,
		CustomerID:      &customerID,
		Category:        "hosting",
		Description:     "August invoice",
		Date:            now,
		Version:         1,
		CreatedAt:       now,
		CreatedBy:       "billing",
		UpdatedAt:       now,
		UpdatedBy:       "billing",
	}
}

func entryRow(rows *pgxmock.Rows, e *ledger.Entry) *pgxmock.Rows {
	paymentHistory, _ := json.Marshal(e.PaymentHistory)
	refundHistory, _ := json.Marshal(e.RefundHistory)
	return rows.AddRow(
		e.ID, e.Kind, e.Amount, e.PaidAmount, e.RemainingAmount, e.Status,
		e.CustomerID, e.Category, e.Description, e.Date, paymentHistory, refundHistory,
		e.AccountFrom, e.AccountTo, e.GroupID, e.Version, e.CreatedAt, e.CreatedBy, e.UpdatedAt, e.UpdatedBy,
	)
}

func TestLedgerRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := testEntry(t, uuid.New())

	query := `INSERT INTO ledger_entries \((.+)\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, \$14, \$15, \$16, \$17, \$18, \$19, \$20\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				entry.ID, entry.Kind, entry.Amount, entry.PaidAmount, entry.RemainingAmount, entry.Status,
				entry.CustomerID, entry.Category, entry.Description, entry.Date, pgxmock.AnyArg(), pgxmock.AnyArg(),
				entry.AccountFrom, entry.AccountTo, entry.GroupID, entry.Version, entry.CreatedAt, entry.CreatedBy, entry.UpdatedAt, entry.UpdatedBy,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(
				entry.ID, entry.Kind, entry.Amount, entry.PaidAmount, entry.RemainingAmount, entry.Status,
				entry.CustomerID, entry.Category, entry.Description, entry.Date, pgxmock.AnyArg(), pgxmock.AnyArg(),
				entry.AccountFrom, entry.AccountTo, entry.GroupID, entry.Version, entry.CreatedAt, entry.CreatedBy, entry.UpdatedAt, entry.UpdatedBy,
			).
			WillReturnError(dbErr)

		err := repo.Create(ctx, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create ledger entry")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := testEntry(t, uuid.New())

	query := `SELECT (.+)\s+FROM ledger_entries\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := entryRow(pgxmock.NewRows(entryColumnNames), entry)
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnRows(rows)

		got, err := repo.GetByID(ctx, entry.ID)
		assert.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entry.ID, got.ID)
		assert.Equal(t, entry.Amount, got.Amount)
		assert.Equal(t, entry.Status, got.Status)
		assert.Equal(t, entry.CustomerID, got.CustomerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, entry.ID)
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, entry.ID, notFoundErr.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnError(dbErr)

		got, err := repo.GetByID(ctx, entry.ID)
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.Contains(t, err.Error(), "failed to get ledger entry")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := testEntry(t, uuid.New())

	query := `SELECT (.+)\s+FROM ledger_entries\s+WHERE id = \$1\s+FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		rows := entryRow(pgxmock.NewRows(entryColumnNames), entry)
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnRows(rows)

		got, err := repo.LockForUpdate(ctx, entry.ID)
		assert.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entry.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entry.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.LockForUpdate(ctx, entry.ID)
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListOpenCreditForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	customerID := uuid.New()

	query := `SELECT (.+)\s+FROM ledger_entries\s+WHERE customer_id = \$1 AND kind = \$2 AND remaining_amount > 0\s+ORDER BY created_at ASC\s+FOR UPDATE`

	t.Run("returns open credit oldest first", func(t *testing.T) {
		older := testEntry(t, customerID)
		older.Kind = ledger.KindCredit
		older.RemainingAmount = 2000
		newer := testEntry(t, customerID)
		newer.Kind = ledger.KindCredit
		newer.RemainingAmount = 3000
		newer.CreatedAt = older.CreatedAt.Add(time.Hour)

		rows := pgxmock.NewRows(entryColumnNames)
		entryRow(rows, older)
		entryRow(rows, newer)

		mock.ExpectQuery(query).WithArgs(customerID, ledger.KindCredit).WillReturnRows(rows)

		entries, err := repo.ListOpenCreditForUpdate(ctx, customerID)
		assert.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, older.ID, entries[0].ID)
		assert.Equal(t, newer.ID, entries[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(customerID, ledger.KindCredit).WillReturnError(dbErr)

		entries, err := repo.ListOpenCreditForUpdate(ctx, customerID)
		assert.Error(t, err)
		assert.Nil(t, entries)
		assert.Contains(t, err.Error(), "failed to list open credit entries")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_SumRemainingCredit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	customerID := uuid.New()

	query := `SELECT COALESCE\(SUM\(remaining_amount\), 0\)\s+FROM ledger_entries\s+WHERE customer_id = \$1 AND kind = \$2`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(7500))
		mock.ExpectQuery(query).WithArgs(customerID, ledger.KindCredit).WillReturnRows(rows)

		total, err := repo.SumRemainingCredit(ctx, customerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(7500), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(customerID, ledger.KindCredit).WillReturnError(dbErr)

		total, err := repo.SumRemainingCredit(ctx, customerID)
		assert.Error(t, err)
		assert.Zero(t, total)
		assert.Contains(t, err.Error(), "failed to sum remaining credit")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entry := testEntry(t, uuid.New())
	entry.PaidAmount = 2000
	entry.RemainingAmount = 3000
	entry.Status = ledger.StatusPartiallyPaid
	entry.Version = 2

	query := `UPDATE ledger_entries\s+SET paid_amount = \$1, remaining_amount = \$2, payment_status = \$3,\s+payment_history = \$4, refund_history = \$5, version = \$6,\s+updated_at = \$7, updated_by = \$8\s+WHERE id = \$9 AND version = \$10`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				entry.PaidAmount, entry.RemainingAmount, entry.Status,
				pgxmock.AnyArg(), pgxmock.AnyArg(), entry.Version,
				entry.UpdatedAt, entry.UpdatedBy, entry.ID, entry.Version-1,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				entry.PaidAmount, entry.RemainingAmount, entry.Status,
				pgxmock.AnyArg(), pgxmock.AnyArg(), entry.Version,
				entry.UpdatedAt, entry.UpdatedBy, entry.ID, entry.Version-1,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, entry)
		assert.Error(t, err)
		var concurrentModErr ledger.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, entry.ID, concurrentModErr.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(
				entry.PaidAmount, entry.RemainingAmount, entry.Status,
				pgxmock.AnyArg(), pgxmock.AnyArg(), entry.Version,
				entry.UpdatedAt, entry.UpdatedBy, entry.ID, entry.Version-1,
			).
			WillReturnError(dbErr)

		err := repo.Update(ctx, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update ledger entry")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entryID := uuid.New()

	query := `DELETE FROM ledger_entries\s+WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(entryID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, entryID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(entryID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, entryID)
		assert.Error(t, err)
		var notFoundErr ledger.ErrEntryNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, entryID, notFoundErr.EntryID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	customerID := uuid.New()

	query := `SELECT (.+)\s+FROM ledger_entries\s+WHERE customer_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2 OFFSET \$3`

	t.Run("success", func(t *testing.T) {
		entry := testEntry(t, customerID)
		rows := entryRow(pgxmock.NewRows(entryColumnNames), entry)
		mock.ExpectQuery(query).WithArgs(customerID, 20, 0).WillReturnRows(rows)

		entries, err := repo.ListByCustomer(ctx, customerID, 20, 0)
		assert.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(customerID, 20, 0).WillReturnError(dbErr)

		entries, err := repo.ListByCustomer(ctx, customerID, 20, 0)
		assert.Error(t, err)
		assert.Nil(t, entries)
		assert.Contains(t, err.Error(), "failed to list ledger entries")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_CountByCustomer(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	customerID := uuid.New()

	query := `SELECT COUNT\(\*\)\s+FROM ledger_entries\s+WHERE customer_id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"count"}).AddRow(int64(4))
		mock.ExpectQuery(query).WithArgs(customerID).WillReturnRows(rows)

		count, err := repo.CountByCustomer(ctx, customerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(customerID).WillReturnError(dbErr)

		count, err := repo.CountByCustomer(ctx, customerID)
		assert.Error(t, err)
		assert.Zero(t, count)
		assert.Contains(t, err.Error(), "failed to count ledger entries")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListByTimeRange(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()

	query := `SELECT (.+)\s+FROM ledger_entries\s+WHERE entry_date >= \$1 AND entry_date <= \$2\s+ORDER BY entry_date DESC\s+LIMIT \$3 OFFSET \$4`

	t.Run("success", func(t *testing.T) {
		entry := testEntry(t, uuid.New())
		rows := entryRow(pgxmock.NewRows(entryColumnNames), entry)
		mock.ExpectQuery(query).WithArgs(start, end, 50, 0).WillReturnRows(rows)

		entries, err := repo.ListByTimeRange(ctx, start, end, 50, 0)
		assert.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(start, end, 50, 0).WillReturnError(dbErr)

		entries, err := repo.ListByTimeRange(ctx, start, end, 50, 0)
		assert.Error(t, err)
		assert.Nil(t, entries)
		assert.Contains(t, err.Error(), "failed to list ledger entries by time range")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &LedgerRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, pgxTx, txRepo.(*LedgerRepository).querier)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
