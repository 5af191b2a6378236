package components

import (
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/config"
	"github.com/fleetops/finance-ledger/internal/domain/account"
	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/domain/outbox"
	"github.com/fleetops/finance-ledger/internal/engine/service"
	"github.com/fleetops/finance-ledger/internal/platform/persistence"
)

// CreateLedgerService creates a LedgerService with all its dependencies.
func CreateLedgerService(
	pgDB *persistence.PostgresDB,
	ledgerRepo ledger.Repository,
	accountRepo account.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.LedgerService {
	allocator := NewCreditAllocator(ledgerRepo, logger)
	payments := NewPaymentProcessor(ledgerRepo, logger)
	refunds := NewRefundProcessor(ledgerRepo, logger)
	charger := NewBulkCharger(ledgerRepo, allocator, logger)
	reversal := NewReversalEngine(ledgerRepo, accountRepo, logger)
	recorder := NewOutboxRecorder(outboxRepo, logger)

	baseService := service.NewLedgerService(
		pgDB,
		ledgerRepo,
		allocator,
		payments,
		refunds,
		charger,
		reversal,
		recorder,
		service.RetryConfig{
			MaxRetries: cfg.Engine.MaxRetries,
			Backoff:    cfg.Engine.RetryBackoff,
		},
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolLedgerService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool ledger service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
