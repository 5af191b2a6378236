package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/account"
	"github.com/fleetops/finance-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL cash account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new cash account in the database
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO cash_accounts (id, name, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Name,
		acc.Balance,
		acc.Currency,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create cash account", "error", err)
		return fmt.Errorf("failed to create cash account: %w", err)
	}

	return nil
}

// GetByID retrieves a cash account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, name, balance, currency, version, created_at, updated_at
		FROM cash_accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Name,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get cash account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get cash account: %w", err)
	}

	return &acc, nil
}

// Update updates an existing cash account in the database
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE cash_accounts
		SET name = $1, balance = $2, currency = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Balance,
		acc.Currency,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update cash account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update cash account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// ApplyDelta atomically adjusts the account balance using optimistic
// locking. Returns ErrConcurrentModification if the account was modified
// between read and update.
func (r *AccountRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	query := `
		UPDATE cash_accounts
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, delta, id, version)
	if err != nil {
		r.logger.Error("Failed to adjust cash account balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to adjust cash account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: id}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its
// current state. This should be used within a transaction when reversing
// an entry's balance side effects.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, name, balance, currency, version, created_at, updated_at
		FROM cash_accounts
		WHERE id = $1
		FOR UPDATE
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Name,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock cash account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock cash account for update: %w", err)
	}

	return &acc, nil
}
