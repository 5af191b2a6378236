package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/domain/outbox"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/jackc/pgx/v5"
)

type OutboxRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxRecorder {
	return &OutboxRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record stages the event in the transactional outbox. The row commits with
// the mutation it describes, so the poller only ever publishes events for
// state that actually exists.
func (m *OutboxRecorderImpl) Record(ctx context.Context, tx pgx.Tx, event *ledger.Event) error {
	logger := m.logger
	if event.CorrelationID != "" {
		logger = m.logger.With("correlation_id", event.CorrelationID)
	}

	outboxRepoTx := m.outboxRepo.WithTx(tx)

	message, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to build outbox message (marshal payload)",
			"event_id", event.EventID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to build outbox payload for event %s: %w", event.EventID.String(), err)
	}

	if err := outboxRepoTx.Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"event_id", event.EventID.String(),
			"entry_id", event.Entry.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID.String(), err)
	}

	logger.Info("Outbox message staged",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"outbox_id", message.ID,
	)
	return nil
}
