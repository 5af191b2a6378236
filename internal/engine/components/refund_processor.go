package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/jackc/pgx/v5"
)

// RefundProcessorImpl implements the RefundProcessor interface
type RefundProcessorImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewRefundProcessor creates a new RefundProcessorImpl
func NewRefundProcessor(ledgerRepo ledger.Repository, logger *slog.Logger) service.RefundProcessor {
	return &RefundProcessorImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Refund reduces the locked credit entry's remaining balance, persists it,
// and stages the mirrored refund entry representing the cash outflow.
// Returns the refund mirror.
func (r *RefundProcessorImpl) Refund(ctx context.Context, tx pgx.Tx, entry *ledger.Entry, refund ledger.Refund) (*ledger.Entry, error) {
	repoTx := r.ledgerRepo.WithTx(tx)

	if err := entry.ApplyRefund(refund); err != nil {
		r.logger.Warn("Refund rejected", "entry_id", entry.ID.String(), "amount", refund.Amount, "error", err)
		return nil, err
	}

	if err := repoTx.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update credit entry %s: %w", entry.ID.String(), err)
	}

	mirror, err := ledger.NewRefundEntry(entry.CustomerID, refund.Amount, refund.Reason, refund.Date, nil, refund.Actor)
	if err != nil {
		return nil, err
	}
	if err := repoTx.Create(ctx, mirror); err != nil {
		return nil, fmt.Errorf("failed to create refund mirror for credit %s: %w", entry.ID.String(), err)
	}

	r.logger.Info("Credit refunded",
		"entry_id", entry.ID.String(),
		"amount", refund.Amount,
		"new_remaining", entry.RemainingAmount,
		"new_status", string(entry.Status),
		"refund_entry_id", mirror.ID.String(),
	)
	return mirror, nil
}
