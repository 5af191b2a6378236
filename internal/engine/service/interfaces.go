package service

import (
	"context"
	"time"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerService is the mutating and querying surface the ledger engine
// exposes to collaborators. Every mutating operation runs as one atomic
// serializable database transaction and is retried a bounded number of
// times on conflict.
type LedgerService interface {
	CreateOutstandingCharge(ctx context.Context, params ChargeParams) (*ledger.Entry, error)
	CreateCredit(ctx context.Context, params ChargeParams) (*ledger.Entry, error)
	RecordPayment(ctx context.Context, params PaymentParams) (*ledger.Payment, error)
	RefundCredit(ctx context.Context, params RefundParams) (*ledger.Refund, error)
	BulkCharge(ctx context.Context, params BulkChargeParams) ([]*ledger.Entry, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID, correlationID, actor string) error

	GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error)
	ListCustomerEntries(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error)
	GetCreditBalance(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// ChargeParams describes a new outstanding charge or credit entry.
type ChargeParams struct {
	CustomerID    uuid.UUID
	Amount        int64
	Category      string
	Description   string
	Date          time.Time
	CorrelationID string
	Actor         string
}

// PaymentParams describes a payment recorded against an outstanding charge.
// When UseCredit is set the amount is drawn from the customer's available
// credit instead of an external payment; Method is then forced to the
// credit method.
type PaymentParams struct {
	EntryID       uuid.UUID
	Amount        int64
	Method        string
	Reference     string
	UseCredit     bool
	Date          time.Time
	CorrelationID string
	Actor         string
}

// RefundParams describes a cash refund drawn from a credit entry.
type RefundParams struct {
	EntryID       uuid.UUID
	Amount        int64
	Reason        string
	Date          time.Time
	CorrelationID string
	Actor         string
}

// BulkChargeParams applies one charge amount to a set of customers in a
// single atomic batch.
type BulkChargeParams struct {
	CustomerIDs       []uuid.UUID
	AmountPerCustomer int64
	Category          string
	Description       string
	Date              time.Time
	CorrelationID     string
	Actor             string
}

// AllocationResult reports how a customer's credit pool was drawn on:
// the total covered (at most the requested amount), the per-entry
// consumption records, and the mutated credit entries themselves. The
// caller persists the entries as part of its own atomic commit.
type AllocationResult struct {
	Covered      int64
	Consumptions []ledger.CreditConsumption
	Entries      []*ledger.Entry
}

// CustomerCharge is one customer's slice of a bulk charge: the outstanding
// entry plus any credit entries consumed and the income mirror staged for
// the covered portion.
type CustomerCharge struct {
	Entry   *ledger.Entry
	Related []*ledger.Entry
}

// CreditAllocator consumes a customer's open credit entries oldest first.
// Allocate locks the entries for the caller's transaction and mutates them
// in memory only; it never writes to the store.
type CreditAllocator interface {
	Allocate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, amountNeeded int64, reference, actor string, date time.Time) (*AllocationResult, error)
}

// PaymentProcessor applies a payment to a locked outstanding entry and
// stages the mirrored income entry, returning the mirror.
type PaymentProcessor interface {
	RecordPayment(ctx context.Context, tx pgx.Tx, entry *ledger.Entry, payment ledger.Payment) (*ledger.Entry, error)
}

// RefundProcessor applies a refund to a locked credit entry and stages the
// mirrored refund entry, returning the mirror.
type RefundProcessor interface {
	Refund(ctx context.Context, tx pgx.Tx, entry *ledger.Entry, refund ledger.Refund) (*ledger.Entry, error)
}

// BulkCharger stages charges for every customer in the batch inside the
// caller's transaction. Any per-customer failure aborts the whole batch.
type BulkCharger interface {
	ChargeAll(ctx context.Context, tx pgx.Tx, params BulkChargeParams) ([]CustomerCharge, error)
}

// ReversalEngine undoes an entry's cash account effects and deletes it.
type ReversalEngine interface {
	Reverse(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error
}

// OutboxRecorder stages a committed-mutation event in the transactional
// outbox within the caller's transaction.
type OutboxRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, event *ledger.Event) error
}
