package service

import (
	"context"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolArchiveService bounds how many events are archived at once by
// routing them through a fixed-size worker pool.
type WorkerPoolArchiveService struct {
	baseService ArchiveService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolArchiveService(
	baseService ArchiveService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolArchiveService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolArchiveService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ArchiveEvent submits the event to the worker pool and waits for the
// result, so the Kafka consumer's commit decision still reflects the
// archive outcome.
func (s *WorkerPoolArchiveService) ArchiveEvent(ctx context.Context, event *ledger.Event) error {
	resultChan := make(chan error, 1)

	if err := s.pool.Submit(func() {
		resultChan <- s.baseService.ArchiveEvent(ctx, event)
	}); err != nil {
		s.logger.Error("Failed to submit event to worker pool",
			"event_id", event.EventID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolArchiveService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolArchiveService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolArchiveService) Capacity() int {
	return s.pool.Cap()
}
