package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/account"
	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReversalEngineImpl implements the ReversalEngine interface
type ReversalEngineImpl struct {
	ledgerRepo  ledger.Repository
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewReversalEngine creates a new ReversalEngineImpl
func NewReversalEngine(ledgerRepo ledger.Repository, accountRepo account.Repository, logger *slog.Logger) service.ReversalEngine {
	return &ReversalEngineImpl{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// Reverse restores the cash account balances the entry moved, then deletes
// the entry. Everything runs in the caller's transaction, so a failed
// reversal leaves the entry and the accounts untouched. Outstanding and
// credit entries carry no account effects and are simply removed.
func (r *ReversalEngineImpl) Reverse(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error {
	accountRepoTx := r.accountRepo.WithTx(tx)
	ledgerRepoTx := r.ledgerRepo.WithTx(tx)

	if entry.Amount != 0 {
		switch entry.Kind {
		case ledger.KindExpense, ledger.KindRefund:
			// Money left accountFrom; give it back.
			if entry.AccountFrom != nil {
				if err := r.applyDelta(ctx, accountRepoTx, *entry.AccountFrom, entry.Amount); err != nil {
					return err
				}
			}
		case ledger.KindIncome:
			// Money arrived at accountTo; take it back.
			if entry.AccountTo != nil {
				if err := r.applyDelta(ctx, accountRepoTx, *entry.AccountTo, -entry.Amount); err != nil {
					return err
				}
			}
		case ledger.KindTransfer:
			if entry.AccountFrom != nil {
				if err := r.applyDelta(ctx, accountRepoTx, *entry.AccountFrom, entry.Amount); err != nil {
					return err
				}
			}
			if entry.AccountTo != nil {
				if err := r.applyDelta(ctx, accountRepoTx, *entry.AccountTo, -entry.Amount); err != nil {
					return err
				}
			}
		}
	}

	if err := ledgerRepoTx.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to delete entry %s after reversal: %w", entry.ID.String(), err)
	}

	r.logger.Info("Entry reversed and deleted",
		"entry_id", entry.ID.String(),
		"kind", string(entry.Kind),
		"amount", entry.Amount,
	)
	return nil
}

func (r *ReversalEngineImpl) applyDelta(ctx context.Context, repo account.Repository, accountID uuid.UUID, delta int64) error {
	acc, err := repo.LockForUpdate(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to lock account %s for reversal: %w", accountID.String(), err)
	}

	if err := repo.ApplyDelta(ctx, acc.ID, delta, acc.Version); err != nil {
		return fmt.Errorf("failed to reverse balance of account %s: %w", accountID.String(), err)
	}

	r.logger.Info("Account effect reversed", "account_id", accountID.String(), "delta", delta)
	return nil
}
