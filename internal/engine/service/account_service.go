package service

import (
	"context"
	"log/slog"

	"github.com/fleetops/finance-ledger/internal/domain/account"
	"github.com/google/uuid"
)

// AccountService manages the internal cash accounts that transfer entries
// and reversal bookkeeping operate on.
type AccountService interface {
	CreateAccount(ctx context.Context, name string, openingBalance int64, currency string) (*account.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type AccountServiceImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

func NewAccountService(accountRepo account.Repository, logger *slog.Logger) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func (s *AccountServiceImpl) CreateAccount(ctx context.Context, name string, openingBalance int64, currency string) (*account.Account, error) {
	acc, err := account.NewAccount(name, openingBalance, currency)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		s.logger.Error("Failed to create cash account", "name", name, "error", err)
		return nil, err
	}

	s.logger.Info("Cash account created", "account_id", acc.ID.String(), "name", acc.Name)
	return acc, nil
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}
