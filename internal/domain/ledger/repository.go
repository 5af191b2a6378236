package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Mutating engine operations
// obtain a transaction-scoped view via WithTx so multi-entry commits are
// atomic.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// LockForUpdate acquires a row lock on the entry for the duration of
	// the surrounding transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListOpenCreditForUpdate returns the customer's credit entries with
	// remaining balance, oldest first, locked for the surrounding
	// transaction. This is the allocator's FIFO query.
	ListOpenCreditForUpdate(ctx context.Context, customerID uuid.UUID) ([]*Entry, error)

	// SumRemainingCredit reports the customer's total available credit.
	SumRemainingCredit(ctx context.Context, customerID uuid.UUID) (int64, error)

	// Update persists the entry using optimistic locking; it returns
	// ErrConcurrentModification when the stored version no longer matches.
	Update(ctx context.Context, entry *Entry) error

	Delete(ctx context.Context, id uuid.UUID) error

	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// An empty target EntryID matches any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrConcurrentModification indicates an optimistic lock failure on an
// entry; the engine treats it as retryable.
type ErrConcurrentModification struct {
	EntryID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
