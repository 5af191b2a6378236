package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/finance-ledger/internal/domain/account"
	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RetryConfig bounds the automatic conflict retry loop around mutating
// operations.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

type LedgerServiceImpl struct {
	pgDB       *persistence.PostgresDB
	execTx     func(ctx context.Context, fn func(tx pgx.Tx) error) error
	ledgerRepo ledger.Repository
	allocator  CreditAllocator
	payments   PaymentProcessor
	refunds    RefundProcessor
	charger    BulkCharger
	reversal   ReversalEngine
	outbox     OutboxRecorder
	retry      RetryConfig
	logger     *slog.Logger
}

func NewLedgerService(
	pgDB *persistence.PostgresDB,
	ledgerRepo ledger.Repository,
	allocator CreditAllocator,
	payments PaymentProcessor,
	refunds RefundProcessor,
	charger BulkCharger,
	reversal ReversalEngine,
	outbox OutboxRecorder,
	retry RetryConfig,
	logger *slog.Logger,
) LedgerService {
	return &LedgerServiceImpl{
		pgDB:       pgDB,
		execTx:     pgDB.ExecuteSerializableTx,
		ledgerRepo: ledgerRepo,
		allocator:  allocator,
		payments:   payments,
		refunds:    refunds,
		charger:    charger,
		reversal:   reversal,
		outbox:     outbox,
		retry:      retry,
		logger:     logger,
	}
}

// CreateOutstandingCharge creates an unpaid charge owed by a customer.
func (s *LedgerServiceImpl) CreateOutstandingCharge(ctx context.Context, params ChargeParams) (*ledger.Entry, error) {
	entry, err := ledger.NewOutstandingEntry(params.CustomerID, params.Amount, params.Category, params.Description, params.Date, params.Actor)
	if err != nil {
		return nil, err
	}
	if err := s.createEntry(ctx, "create_outstanding_charge", entry, params.CorrelationID, params.Actor); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateCredit creates a pre-paid balance owned by a customer.
func (s *LedgerServiceImpl) CreateCredit(ctx context.Context, params ChargeParams) (*ledger.Entry, error) {
	entry, err := ledger.NewCreditEntry(params.CustomerID, params.Amount, params.Category, params.Description, params.Date, params.Actor)
	if err != nil {
		return nil, err
	}
	if err := s.createEntry(ctx, "create_credit", entry, params.CorrelationID, params.Actor); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LedgerServiceImpl) createEntry(ctx context.Context, op string, entry *ledger.Entry, correlationID, actor string) error {
	return s.runSerializable(ctx, op, correlationID, func(tx pgx.Tx) error {
		repoTx := s.ledgerRepo.WithTx(tx)
		if err := repoTx.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create %s entry: %w", entry.Kind, err)
		}
		event := ledger.NewEvent(ledger.EventEntryCreated, entry, nil, correlationID, actor)
		return s.outbox.Record(ctx, tx, event)
	})
}

// RecordPayment applies a payment to an outstanding charge. With UseCredit
// the full amount must be covered by the customer's available credit in the
// same transaction; a shortfall rejects the payment with no mutation.
func (s *LedgerServiceImpl) RecordPayment(ctx context.Context, params PaymentParams) (*ledger.Payment, error) {
	if params.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	date := params.Date
	if date.IsZero() {
		date = time.Now()
	}

	var recorded ledger.Payment
	err := s.runSerializable(ctx, "record_payment", params.CorrelationID, func(tx pgx.Tx) error {
		repoTx := s.ledgerRepo.WithTx(tx)

		entry, err := repoTx.LockForUpdate(ctx, params.EntryID)
		if err != nil {
			return err
		}

		payment := ledger.Payment{
			Amount:    params.Amount,
			Date:      date,
			Method:    params.Method,
			Reference: params.Reference,
			Actor:     params.Actor,
		}

		var related []*ledger.Entry
		if params.UseCredit {
			if entry.CustomerID == nil {
				return ledger.ErrMissingCustomer
			}
			alloc, err := s.allocator.Allocate(ctx, tx, *entry.CustomerID, params.Amount, entry.ID.String(), params.Actor, date)
			if err != nil {
				return err
			}
			if alloc.Covered < params.Amount {
				return ledger.ErrInsufficientCredit
			}
			for _, credit := range alloc.Entries {
				if err := repoTx.Update(ctx, credit); err != nil {
					return err
				}
			}
			payment.Method = ledger.MethodCredit
			related = append(related, alloc.Entries...)
		}

		income, err := s.payments.RecordPayment(ctx, tx, entry, payment)
		if err != nil {
			return err
		}
		related = append(related, income)

		event := ledger.NewEvent(ledger.EventPaymentRecorded, entry, related, params.CorrelationID, params.Actor)
		if err := s.outbox.Record(ctx, tx, event); err != nil {
			return err
		}

		recorded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recorded, nil
}

// RefundCredit returns part of a credit entry's remaining balance as cash.
func (s *LedgerServiceImpl) RefundCredit(ctx context.Context, params RefundParams) (*ledger.Refund, error) {
	if params.Amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	date := params.Date
	if date.IsZero() {
		date = time.Now()
	}

	var recorded ledger.Refund
	err := s.runSerializable(ctx, "refund_credit", params.CorrelationID, func(tx pgx.Tx) error {
		repoTx := s.ledgerRepo.WithTx(tx)

		entry, err := repoTx.LockForUpdate(ctx, params.EntryID)
		if err != nil {
			return err
		}

		refund := ledger.Refund{
			Amount: params.Amount,
			Date:   date,
			Reason: params.Reason,
			Actor:  params.Actor,
		}
		mirror, err := s.refunds.Refund(ctx, tx, entry, refund)
		if err != nil {
			return err
		}

		event := ledger.NewEvent(ledger.EventCreditRefunded, entry, []*ledger.Entry{mirror}, params.CorrelationID, params.Actor)
		if err := s.outbox.Record(ctx, tx, event); err != nil {
			return err
		}

		recorded = refund
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &recorded, nil
}

// BulkCharge applies one charge amount to every customer in the batch as a
// single atomic operation; each customer's available credit offsets their
// charge before the outstanding entry is staged. A failure for any customer
// aborts the whole batch and reports that customer.
func (s *LedgerServiceImpl) BulkCharge(ctx context.Context, params BulkChargeParams) ([]*ledger.Entry, error) {
	if params.AmountPerCustomer <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if len(params.CustomerIDs) == 0 {
		return nil, nil
	}
	if params.Date.IsZero() {
		params.Date = time.Now()
	}

	var charges []*ledger.Entry
	err := s.runSerializable(ctx, "bulk_charge", params.CorrelationID, func(tx pgx.Tx) error {
		charges = charges[:0]

		staged, err := s.charger.ChargeAll(ctx, tx, params)
		if err != nil {
			return err
		}
		for _, cc := range staged {
			event := ledger.NewEvent(ledger.EventEntryCreated, cc.Entry, cc.Related, params.CorrelationID, params.Actor)
			if err := s.outbox.Record(ctx, tx, event); err != nil {
				return err
			}
			charges = append(charges, cc.Entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return charges, nil
}

// DeleteEntry reverses the entry's cash account effects and removes it.
// If any reversal fails the entry is left untouched.
func (s *LedgerServiceImpl) DeleteEntry(ctx context.Context, entryID uuid.UUID, correlationID, actor string) error {
	return s.runSerializable(ctx, "delete_entry", correlationID, func(tx pgx.Tx) error {
		repoTx := s.ledgerRepo.WithTx(tx)

		entry, err := repoTx.LockForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := s.reversal.Reverse(ctx, tx, entry); err != nil {
			return err
		}

		event := ledger.NewEvent(ledger.EventEntryDeleted, entry, nil, correlationID, actor)
		return s.outbox.Record(ctx, tx, event)
	})
}

// GetEntry fetches a single ledger entry.
func (s *LedgerServiceImpl) GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	return s.ledgerRepo.GetByID(ctx, entryID)
}

// ListCustomerEntries returns a page of the customer's entries, newest
// first, along with the total count.
func (s *LedgerServiceImpl) ListCustomerEntries(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	entries, err := s.ledgerRepo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledgerRepo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// GetCreditBalance sums the customer's remaining credit across all of their
// open credit entries.
func (s *LedgerServiceImpl) GetCreditBalance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.ledgerRepo.SumRemainingCredit(ctx, customerID)
}

// runSerializable executes fn inside a serializable transaction, retrying
// serialization failures and optimistic-lock conflicts with exponential
// backoff until the retry budget is spent. fn must be safe to re-run.
func (s *LedgerServiceImpl) runSerializable(ctx context.Context, op, correlationID string, fn func(tx pgx.Tx) error) error {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	backoff := s.retry.Backoff
	var err error
	for attempt := 0; ; attempt++ {
		err = s.execTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableConflict(err) {
			return err
		}
		if attempt >= s.retry.MaxRetries {
			logger.Warn("Conflict retries exhausted", "op", op, "attempts", attempt+1, "error", err)
			return ErrRetriesExhausted{Op: op, Err: err}
		}

		logger.Warn("Conflict detected, retrying", "op", op, "attempt", attempt+1, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func isRetryableConflict(err error) bool {
	return persistence.IsSerializationFailure(err) ||
		errors.Is(err, ledger.ErrConcurrentModification{}) ||
		errors.Is(err, account.ErrConcurrentModification{})
}
