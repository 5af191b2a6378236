package service

import (
	"context"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolLedgerService bounds the number of mutating engine operations
// running at once by routing them through a fixed-size worker pool. Reads
// bypass the pool.
type WorkerPoolLedgerService struct {
	baseService LedgerService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolLedgerService(
	baseService LedgerService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolLedgerService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolLedgerService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// submit runs fn on a pool worker and waits for its result.
func (s *WorkerPoolLedgerService) submit(op string, fn func() error) error {
	resultChan := make(chan error, 1)

	if err := s.pool.Submit(func() {
		resultChan <- fn()
	}); err != nil {
		s.logger.Error("Failed to submit operation to worker pool", "op", op, "error", err)
		return err
	}

	return <-resultChan
}

func (s *WorkerPoolLedgerService) CreateOutstandingCharge(ctx context.Context, params ChargeParams) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := s.submit("create_outstanding_charge", func() error {
		var opErr error
		entry, opErr = s.baseService.CreateOutstandingCharge(ctx, params)
		return opErr
	})
	return entry, err
}

func (s *WorkerPoolLedgerService) CreateCredit(ctx context.Context, params ChargeParams) (*ledger.Entry, error) {
	var entry *ledger.Entry
	err := s.submit("create_credit", func() error {
		var opErr error
		entry, opErr = s.baseService.CreateCredit(ctx, params)
		return opErr
	})
	return entry, err
}

func (s *WorkerPoolLedgerService) RecordPayment(ctx context.Context, params PaymentParams) (*ledger.Payment, error) {
	var payment *ledger.Payment
	err := s.submit("record_payment", func() error {
		var opErr error
		payment, opErr = s.baseService.RecordPayment(ctx, params)
		return opErr
	})
	return payment, err
}

func (s *WorkerPoolLedgerService) RefundCredit(ctx context.Context, params RefundParams) (*ledger.Refund, error) {
	var refund *ledger.Refund
	err := s.submit("refund_credit", func() error {
		var opErr error
		refund, opErr = s.baseService.RefundCredit(ctx, params)
		return opErr
	})
	return refund, err
}

func (s *WorkerPoolLedgerService) BulkCharge(ctx context.Context, params BulkChargeParams) ([]*ledger.Entry, error) {
	var charges []*ledger.Entry
	err := s.submit("bulk_charge", func() error {
		var opErr error
		charges, opErr = s.baseService.BulkCharge(ctx, params)
		return opErr
	})
	return charges, err
}

func (s *WorkerPoolLedgerService) DeleteEntry(ctx context.Context, entryID uuid.UUID, correlationID, actor string) error {
	return s.submit("delete_entry", func() error {
		return s.baseService.DeleteEntry(ctx, entryID, correlationID, actor)
	})
}

func (s *WorkerPoolLedgerService) GetEntry(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	return s.baseService.GetEntry(ctx, entryID)
}

func (s *WorkerPoolLedgerService) ListCustomerEntries(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	return s.baseService.ListCustomerEntries(ctx, customerID, limit, offset)
}

func (s *WorkerPoolLedgerService) GetCreditBalance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.baseService.GetCreditBalance(ctx, customerID)
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolLedgerService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolLedgerService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolLedgerService) Capacity() int {
	return s.pool.Cap()
}
