package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds in cash account")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptyName             = errors.New("account name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Account is an internal cash account (till, bank account, petty cash).
// Ledger entries reference accounts through their AccountFrom/AccountTo
// fields; the reversal engine restores balances here before deleting an
// entry.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"` // Stored in minor units (pence)
	Currency  string    `json:"currency"`
	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates a new cash account with the given opening balance
func NewAccount(name string, openingBalance int64, currency string) (*Account, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if openingBalance < 0 {
		return nil, ErrInvalidAmount
	}

	return &Account{
		ID:        uuid.New(),
		Name:      name,
		Balance:   openingBalance,
		Currency:  currency,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// Credit adds the specified amount to the account balance
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Debit subtracts the specified amount from the account balance. Reversal
// bookkeeping may legitimately drive a balance negative (the original entry
// already moved the cash), so no floor is enforced here.
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}
