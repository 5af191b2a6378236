package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/outbox"
	"github.com/fleetops/finance-ledger/internal/platform/messaging/producers"
)

// EventPublisher pushes a drained outbox message to the ledger-event topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisherImpl implements EventPublisher
type KafkaEventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewKafkaEventPublisher creates a new publisher
func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the message payload to Kafka keyed by the entry ID
// so events for the same entry keep their order, then marks the outbox row
// PROCESSED. A payload that no longer parses is marked FAILED_TO_PUBLISH
// rather than retried forever.
func (p *KafkaEventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to Kafka", "outbox_id", message.ID, "event_id", message.EventID.String(), "event_type", string(event.Type))

	if err := p.producer.Publish(ctx, message.EntryID.String(), json.RawMessage(message.Payload)); err != nil {
		logger.Error("Failed to publish ledger event", "outbox_id", message.ID, "event_id", message.EventID.String(), "error", err)
		return fmt.Errorf("failed to publish ledger event %s: %w", message.EventID.String(), err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		return fmt.Errorf("event %s published OK, but failed to mark outbox %d as PROCESSED: %w", message.EventID.String(), message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "event_id", message.EventID.String())
	return nil
}
