// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the finance ledger.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, kind, amount, paid_amount, remaining_amount, payment_status,
		customer_id, category, description, entry_date, payment_history, refund_history,
		account_from, account_to, group_id, version, created_at, created_by, updated_at, updated_by`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger entry
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	paymentHistory, refundHistory, err := marshalHistories(entry)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = r.querier.Exec(ctx, query,
		entry.ID,
		entry.Kind,
		entry.Amount,
		entry.PaidAmount,
		entry.RemainingAmount,
		entry.Status,
		entry.CustomerID,
		entry.Category,
		entry.Description,
		entry.Date,
		paymentHistory,
		refundHistory,
		entry.AccountFrom,
		entry.AccountTo,
		entry.GroupID,
		entry.Version,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.UpdatedAt,
		entry.UpdatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// LockForUpdate obtains a row lock on the entry and returns its current
// state. This must be used within a transaction.
func (r *LedgerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1
		FOR UPDATE
	`

	entry, err := r.scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to lock ledger entry for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock ledger entry for update: %w", err)
	}

	return entry, nil
}

// ListOpenCreditForUpdate returns the customer's credit entries with
// remaining balance, oldest first, locked for the surrounding transaction.
// The ordering is the allocator's FIFO guarantee.
func (r *LedgerRepository) ListOpenCreditForUpdate(ctx context.Context, customerID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE customer_id = $1 AND kind = $2 AND remaining_amount > 0
		ORDER BY created_at ASC
		FOR UPDATE
	`

	rows, err := r.querier.Query(ctx, query, customerID, ledger.KindCredit)
	if err != nil {
		r.logger.Error("Failed to list open credit entries", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list open credit entries: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// SumRemainingCredit reports the customer's total available credit
func (r *LedgerRepository) SumRemainingCredit(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(remaining_amount), 0)
		FROM ledger_entries
		WHERE customer_id = $1 AND kind = $2
	`

	var total int64
	err := r.querier.QueryRow(ctx, query, customerID, ledger.KindCredit).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to sum remaining credit", "customer_id", customerID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum remaining credit: %w", err)
	}

	return total, nil
}

// Update persists an entry using optimistic locking. Returns
// ErrConcurrentModification if the entry was modified between read and
// update.
func (r *LedgerRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	paymentHistory, refundHistory, err := marshalHistories(entry)
	if err != nil {
		return err
	}

	query := `
		UPDATE ledger_entries
		SET paid_amount = $1, remaining_amount = $2, payment_status = $3,
			payment_history = $4, refund_history = $5, version = $6,
			updated_at = $7, updated_by = $8
		WHERE id = $9 AND version = $10
	`

	result, err := r.querier.Exec(ctx, query,
		entry.PaidAmount,
		entry.RemainingAmount,
		entry.Status,
		paymentHistory,
		refundHistory,
		entry.Version,
		entry.UpdatedAt,
		entry.UpdatedBy,
		entry.ID,
		entry.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update ledger entry", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrConcurrentModification{EntryID: entry.ID}
	}

	return nil
}

// Delete removes a ledger entry. Returns ErrEntryNotFound if no row matched.
func (r *LedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM ledger_entries
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete ledger entry", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// ListByCustomer retrieves paginated ledger entries for a customer,
// newest first
func (r *LedgerRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

// CountByCustomer counts the total number of ledger entries for a customer
func (r *LedgerRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE customer_id = $1
	`

	var count int64
	err := r.querier.QueryRow(ctx, query, customerID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "customer_id", customerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// ListByTimeRange retrieves paginated ledger entries within the given window
func (r *LedgerRepository) ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE entry_date >= $1 AND entry_date <= $2
		ORDER BY entry_date DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, startTime, endTime, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries by time range", "error", err)
		return nil, fmt.Errorf("failed to list ledger entries by time range: %w", err)
	}
	defer rows.Close()

	return r.collectEntries(rows)
}

func (r *LedgerRepository) collectEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	var paymentHistory, refundHistory []byte

	err := row.Scan(
		&entry.ID,
		&entry.Kind,
		&entry.Amount,
		&entry.PaidAmount,
		&entry.RemainingAmount,
		&entry.Status,
		&entry.CustomerID,
		&entry.Category,
		&entry.Description,
		&entry.Date,
		&paymentHistory,
		&refundHistory,
		&entry.AccountFrom,
		&entry.AccountTo,
		&entry.GroupID,
		&entry.Version,
		&entry.CreatedAt,
		&entry.CreatedBy,
		&entry.UpdatedAt,
		&entry.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(paymentHistory) > 0 {
		if err := json.Unmarshal(paymentHistory, &entry.PaymentHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment history: %w", err)
		}
	}
	if len(refundHistory) > 0 {
		if err := json.Unmarshal(refundHistory, &entry.RefundHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal refund history: %w", err)
		}
	}

	return &entry, nil
}

// marshalHistories encodes the append-only histories as JSONB payloads
func marshalHistories(entry *ledger.Entry) ([]byte, []byte, error) {
	paymentHistory, err := json.Marshal(entry.PaymentHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payment history: %w", err)
	}
	refundHistory, err := json.Marshal(entry.RefundHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal refund history: %w", err)
	}
	return paymentHistory, refundHistory, nil
}
