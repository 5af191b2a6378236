package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/archive"
	"github.com/fleetops/finance-ledger/internal/domain/ledger"
)

// ArchiveService stores published ledger events in the reporting archive.
type ArchiveService interface {
	ArchiveEvent(ctx context.Context, event *ledger.Event) error
}

type ArchiveServiceImpl struct {
	archiveRepo archive.Repository
	logger      *slog.Logger
}

func NewArchiveService(archiveRepo archive.Repository, logger *slog.Logger) ArchiveService {
	return &ArchiveServiceImpl{
		archiveRepo: archiveRepo,
		logger:      logger,
	}
}

// ArchiveEvent stores the event's entry snapshots. Saving is idempotent on
// the event ID, so Kafka redeliveries are safe.
func (s *ArchiveServiceImpl) ArchiveEvent(ctx context.Context, event *ledger.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	if event.Entry == nil {
		return fmt.Errorf("event %s carries no entry snapshot", event.EventID.String())
	}

	record := archive.NewRecord(event)
	if err := s.archiveRepo.Save(ctx, record); err != nil {
		logger.Error("Failed to archive ledger event",
			"event_id", event.EventID.String(),
			"event_type", string(event.Type),
			"error", err,
		)
		return fmt.Errorf("failed to archive event %s: %w", event.EventID.String(), err)
	}

	logger.Info("Ledger event archived",
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
		"entry_id", event.Entry.ID.String(),
		"related_entries", len(event.Related),
	)
	return nil
}
