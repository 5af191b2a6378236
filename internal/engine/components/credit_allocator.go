package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreditAllocatorImpl implements the CreditAllocator interface
type CreditAllocatorImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewCreditAllocator creates a new CreditAllocatorImpl
func NewCreditAllocator(ledgerRepo ledger.Repository, logger *slog.Logger) service.CreditAllocator {
	return &CreditAllocatorImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// PlanAllocation walks credit entries oldest first, consuming
// min(remaining, still needed) from each until the requested amount is
// covered or the entries run out. Pure; entries are not modified and no
// storage is touched.
func PlanAllocation(entries []*ledger.Entry, amountNeeded int64) (int64, []ledger.CreditConsumption) {
	if amountNeeded <= 0 {
		return 0, nil
	}

	var covered int64
	var consumptions []ledger.CreditConsumption
	for _, entry := range entries {
		if covered >= amountNeeded {
			break
		}
		if entry.RemainingAmount <= 0 {
			continue
		}

		deduction := amountNeeded - covered
		if entry.RemainingAmount < deduction {
			deduction = entry.RemainingAmount
		}

		newPaid := entry.PaidAmount + deduction
		consumptions = append(consumptions, ledger.CreditConsumption{
			EntryID:      entry.ID,
			Deduction:    deduction,
			NewPaid:      newPaid,
			NewRemaining: entry.Amount - newPaid,
			NewStatus:    ledger.StatusForCredit(entry.Amount, newPaid, entry.RefundedTotal()),
		})
		covered += deduction
	}
	return covered, consumptions
}

// Allocate locks the customer's open credit entries for the caller's
// transaction, plans the FIFO draw, and applies the consumption to the
// entry models in memory. The caller persists the returned entries as part
// of its own atomic commit; nothing is written here.
func (a *CreditAllocatorImpl) Allocate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, amountNeeded int64, reference, actor string, date time.Time) (*service.AllocationResult, error) {
	if amountNeeded <= 0 {
		return &service.AllocationResult{}, nil
	}

	repoTx := a.ledgerRepo.WithTx(tx)
	credits, err := repoTx.ListOpenCreditForUpdate(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock credit entries for customer %s: %w", customerID.String(), err)
	}

	covered, consumptions := PlanAllocation(credits, amountNeeded)

	byID := make(map[uuid.UUID]*ledger.Entry, len(credits))
	for _, entry := range credits {
		byID[entry.ID] = entry
	}

	result := &service.AllocationResult{
		Covered:      covered,
		Consumptions: consumptions,
	}
	for _, consumption := range consumptions {
		entry := byID[consumption.EntryID]
		if err := entry.ConsumeCredit(consumption.Deduction, reference, actor, date); err != nil {
			return nil, fmt.Errorf("failed to consume credit entry %s: %w", entry.ID.String(), err)
		}
		result.Entries = append(result.Entries, entry)
	}

	a.logger.Info("Credit allocation planned",
		"customer_id", customerID.String(),
		"requested", amountNeeded,
		"covered", covered,
		"entries_consumed", len(result.Entries),
	)
	return result, nil
}
