package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/jackc/pgx/v5"
)

// PaymentProcessorImpl implements the PaymentProcessor interface
type PaymentProcessorImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewPaymentProcessor creates a new PaymentProcessorImpl
func NewPaymentProcessor(ledgerRepo ledger.Repository, logger *slog.Logger) service.PaymentProcessor {
	return &PaymentProcessorImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// RecordPayment applies the payment to the locked outstanding entry,
// persists it, and stages the mirrored income entry so that income
// reporting reflects the cash inflow. Returns the income mirror.
func (p *PaymentProcessorImpl) RecordPayment(ctx context.Context, tx pgx.Tx, entry *ledger.Entry, payment ledger.Payment) (*ledger.Entry, error) {
	repoTx := p.ledgerRepo.WithTx(tx)

	if err := entry.ApplyPayment(payment); err != nil {
		p.logger.Warn("Payment rejected", "entry_id", entry.ID.String(), "amount", payment.Amount, "error", err)
		return nil, err
	}

	if err := repoTx.Update(ctx, entry); err != nil {
		if errors.Is(err, ledger.ErrConcurrentModification{EntryID: entry.ID}) {
			p.logger.Warn("Concurrent modification on charge update", "entry_id", entry.ID.String())
			return nil, err
		}
		return nil, fmt.Errorf("failed to update charge %s: %w", entry.ID.String(), err)
	}

	income, err := ledger.NewIncomeEntry(entry.CustomerID, payment.Amount, entry.Category, incomeDescription(entry, payment), payment.Date, nil, payment.Actor)
	if err != nil {
		return nil, err
	}
	if err := repoTx.Create(ctx, income); err != nil {
		return nil, fmt.Errorf("failed to create income mirror for charge %s: %w", entry.ID.String(), err)
	}

	p.logger.Info("Payment recorded",
		"entry_id", entry.ID.String(),
		"amount", payment.Amount,
		"method", payment.Method,
		"new_status", string(entry.Status),
		"income_entry_id", income.ID.String(),
	)
	return income, nil
}

func incomeDescription(entry *ledger.Entry, payment ledger.Payment) string {
	if payment.Method == ledger.MethodCredit {
		return fmt.Sprintf("Payment from credit balance for %s", entry.ID.String())
	}
	if entry.Description != "" {
		return "Payment received: " + entry.Description
	}
	return "Payment received for " + entry.ID.String()
}
