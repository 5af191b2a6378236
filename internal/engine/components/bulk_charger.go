package components

import (
	"context"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BulkChargerImpl implements the BulkCharger interface
type BulkChargerImpl struct {
	ledgerRepo ledger.Repository
	allocator  service.CreditAllocator
	logger     *slog.Logger
}

// NewBulkCharger creates a new BulkChargerImpl
func NewBulkCharger(ledgerRepo ledger.Repository, allocator service.CreditAllocator, logger *slog.Logger) service.BulkCharger {
	return &BulkChargerImpl{
		ledgerRepo: ledgerRepo,
		allocator:  allocator,
		logger:     logger,
	}
}

// ChargeAll stages one outstanding charge per customer inside the caller's
// transaction, drawing each customer's available credit first. All staged
// writes commit together; a failure for any customer aborts the batch and
// names that customer.
func (b *BulkChargerImpl) ChargeAll(ctx context.Context, tx pgx.Tx, params service.BulkChargeParams) ([]service.CustomerCharge, error) {
	charges := make([]service.CustomerCharge, 0, len(params.CustomerIDs))
	for _, customerID := range params.CustomerIDs {
		charge, err := b.chargeOne(ctx, tx, customerID, params)
		if err != nil {
			b.logger.Warn("Bulk charge aborted", "customer_id", customerID.String(), "error", err)
			return nil, service.ErrCustomerChargeFailed{CustomerID: customerID, Err: err}
		}
		charges = append(charges, *charge)
	}

	b.logger.Info("Bulk charge staged",
		"customers", len(params.CustomerIDs),
		"amount_per_customer", params.AmountPerCustomer,
	)
	return charges, nil
}

func (b *BulkChargerImpl) chargeOne(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, params service.BulkChargeParams) (*service.CustomerCharge, error) {
	repoTx := b.ledgerRepo.WithTx(tx)

	charge, err := ledger.NewOutstandingEntry(customerID, params.AmountPerCustomer, params.Category, params.Description, params.Date, params.Actor)
	if err != nil {
		return nil, err
	}

	alloc, err := b.allocator.Allocate(ctx, tx, customerID, params.AmountPerCustomer, charge.ID.String(), params.Actor, params.Date)
	if err != nil {
		return nil, err
	}

	var related []*ledger.Entry
	if alloc.Covered > 0 {
		if err := charge.ApplyPayment(ledger.Payment{
			Amount: alloc.Covered,
			Date:   params.Date,
			Method: ledger.MethodCredit,
			Actor:  params.Actor,
		}); err != nil {
			return nil, err
		}

		for _, credit := range alloc.Entries {
			if err := repoTx.Update(ctx, credit); err != nil {
				return nil, err
			}
		}

		income, err := ledger.NewIncomeEntry(&customerID, alloc.Covered, params.Category, params.Description+" (paid from credit)", params.Date, nil, params.Actor)
		if err != nil {
			return nil, err
		}
		if err := repoTx.Create(ctx, income); err != nil {
			return nil, err
		}

		related = append(related, alloc.Entries...)
		related = append(related, income)
	}

	if err := repoTx.Create(ctx, charge); err != nil {
		return nil, err
	}

	return &service.CustomerCharge{Entry: charge, Related: related}, nil
}
