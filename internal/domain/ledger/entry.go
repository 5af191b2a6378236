package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common validation errors. Each names the invariant that was violated so
// callers can surface a meaningful rejection.
var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrPaymentExceedsRemaining = errors.New("payment exceeds remaining balance")
	ErrRefundExceedsRemaining  = errors.New("refund exceeds remaining credit balance")
	ErrNotOutstanding          = errors.New("entry is not an outstanding charge")
	ErrNotCredit               = errors.New("entry is not a credit entry")
	ErrMissingCustomer         = errors.New("entry requires a customer")
	ErrInsufficientCredit      = errors.New("available credit does not cover the requested amount")
)

// Kind classifies a ledger entry. Direction of cash flow is implied by the
// kind; Amount is always positive.
type Kind string

const (
	KindIncome      Kind = "income"
	KindExpense     Kind = "expense"
	KindTransfer    Kind = "transfer"
	KindOutstanding Kind = "outstanding"
	KindCredit      Kind = "credit"
	KindRefund      Kind = "refund"
)

// PaymentStatus is the derived settlement state of an outstanding or credit
// entry. It is owned by the engine; collaborators read but never set it.
type PaymentStatus string

const (
	StatusUnpaid            PaymentStatus = "unpaid"
	StatusPartiallyPaid     PaymentStatus = "partially_paid"
	StatusPaid              PaymentStatus = "paid"
	StatusPartiallyRefunded PaymentStatus = "partially_refunded"
	StatusRefunded          PaymentStatus = "refunded"
)

// MethodCredit marks a payment record that was satisfied from the customer's
// pre-paid credit balance rather than an external payment.
const MethodCredit = "credit"

// Payment is one append-only payment history record.
type Payment struct {
	Amount    int64     `json:"amount" bson:"amount"` // Stored in minor units (pence)
	Date      time.Time `json:"date" bson:"date"`
	Method    string    `json:"method" bson:"method"`
	Reference string    `json:"reference,omitempty" bson:"reference,omitempty"`
	Actor     string    `json:"actor,omitempty" bson:"actor,omitempty"`
}

// Refund is one append-only refund history record. Refund history exists
// only on credit entries.
type Refund struct {
	Amount int64     `json:"amount" bson:"amount"` // Stored in minor units (pence)
	Date   time.Time `json:"date" bson:"date"`
	Reason string    `json:"reason" bson:"reason"`
	Actor  string    `json:"actor,omitempty" bson:"actor,omitempty"`
}

// Entry is the sole persisted entity of the ledger. Amounts are int64 minor
// units (pence), so PaidAmount + RemainingAmount == Amount holds exactly.
type Entry struct {
	ID              uuid.UUID     `json:"id" bson:"id"`
	Kind            Kind          `json:"kind" bson:"kind"`
	Amount          int64         `json:"amount" bson:"amount"` // Stored in minor units (pence)
	PaidAmount      int64         `json:"paid_amount" bson:"paid_amount"`
	RemainingAmount int64         `json:"remaining_amount" bson:"remaining_amount"`
	Status          PaymentStatus `json:"payment_status,omitempty" bson:"payment_status,omitempty"`
	CustomerID      *uuid.UUID    `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Category        string        `json:"category,omitempty" bson:"category,omitempty"`
	Description     string        `json:"description,omitempty" bson:"description,omitempty"`
	Date            time.Time     `json:"date" bson:"date"`
	PaymentHistory  []Payment     `json:"payment_history,omitempty" bson:"payment_history,omitempty"`
	RefundHistory   []Refund      `json:"refund_history,omitempty" bson:"refund_history,omitempty"`
	AccountFrom     *uuid.UUID    `json:"account_from,omitempty" bson:"account_from,omitempty"`
	AccountTo       *uuid.UUID    `json:"account_to,omitempty" bson:"account_to,omitempty"`
	GroupID         string        `json:"group_id,omitempty" bson:"group_id,omitempty"`
	Version         int           `json:"version" bson:"version"` // For optimistic locking
	CreatedAt       time.Time     `json:"created_at" bson:"created_at"`
	CreatedBy       string        `json:"created_by,omitempty" bson:"created_by,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at" bson:"updated_at"`
	UpdatedBy       string        `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
}

// StatusForOutstanding derives the settlement status of an outstanding
// charge. It is a pure function of the (amount, paid) pair.
func StatusForOutstanding(amount, paid int64) PaymentStatus {
	switch {
	case paid <= 0:
		return StatusUnpaid
	case paid >= amount:
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

// StatusForCredit derives the settlement status of a credit entry. For
// credit entries PaidAmount tracks the cumulative consumed-or-refunded
// total; refunded is the portion of that total returned as cash. Once any
// part has been refunded the entry reports a refund status.
func StatusForCredit(amount, paid, refunded int64) PaymentStatus {
	if refunded > 0 {
		if paid >= amount {
			return StatusRefunded
		}
		return StatusPartiallyRefunded
	}
	return StatusForOutstanding(amount, paid)
}

// NewOutstandingEntry creates an unpaid charge owed by a customer.
func NewOutstandingEntry(customerID uuid.UUID, amount int64, category, description string, date time.Time, actor string) (*Entry, error) {
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomer
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:              uuid.New(),
		Kind:            KindOutstanding,
		Amount:          amount,
		PaidAmount:      0,
		RemainingAmount: amount,
		Status:          StatusUnpaid,
		CustomerID:      &customerID,
		Category:        category,
		Description:     description,
		Date:            date,
		Version:         1,
		CreatedAt:       now,
		CreatedBy:       actor,
		UpdatedAt:       now,
		UpdatedBy:       actor,
	}, nil
}

// NewCreditEntry creates a pre-paid balance owned by a customer, available
// to offset future charges.
func NewCreditEntry(customerID uuid.UUID, amount int64, category, description string, date time.Time, actor string) (*Entry, error) {
	if customerID == uuid.Nil {
		return nil, ErrMissingCustomer
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:              uuid.New(),
		Kind:            KindCredit,
		Amount:          amount,
		PaidAmount:      0,
		RemainingAmount: amount,
		Status:          StatusUnpaid,
		CustomerID:      &customerID,
		Category:        category,
		Description:     description,
		Date:            date,
		Version:         1,
		CreatedAt:       now,
		CreatedBy:       actor,
		UpdatedAt:       now,
		UpdatedBy:       actor,
	}, nil
}

// NewIncomeEntry creates a mirrored income entry representing real or
// credit-sourced cash inflow. accountTo optionally names the internal cash
// account that received the money.
func NewIncomeEntry(customerID *uuid.UUID, amount int64, category, description string, date time.Time, accountTo *uuid.UUID, actor string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:          uuid.New(),
		Kind:        KindIncome,
		Amount:      amount,
		CustomerID:  customerID,
		Category:    category,
		Description: description,
		Date:        date,
		AccountTo:   accountTo,
		Version:     1,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
	}, nil
}

// NewExpenseEntry creates an expense entry. accountFrom optionally names
// the internal cash account the money left.
func NewExpenseEntry(amount int64, category, description string, date time.Time, accountFrom *uuid.UUID, actor string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:          uuid.New(),
		Kind:        KindExpense,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
		AccountFrom: accountFrom,
		Version:     1,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
	}, nil
}

// NewTransferEntry creates a transfer between two internal cash accounts.
func NewTransferEntry(amount int64, description string, date time.Time, accountFrom, accountTo uuid.UUID, actor string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:          uuid.New(),
		Kind:        KindTransfer,
		Amount:      amount,
		Description: description,
		Date:        date,
		AccountFrom: &accountFrom,
		AccountTo:   &accountTo,
		Version:     1,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
	}, nil
}

// NewRefundEntry creates a mirrored refund entry representing the cash
// outflow of a credit refund.
func NewRefundEntry(customerID *uuid.UUID, amount int64, reason string, date time.Time, accountFrom *uuid.UUID, actor string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Entry{
		ID:          uuid.New(),
		Kind:        KindRefund,
		Amount:      amount,
		CustomerID:  customerID,
		Description: reason,
		Date:        date,
		AccountFrom: accountFrom,
		Version:     1,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
	}, nil
}

// ApplyPayment records a payment against an outstanding charge, updating
// the derived totals and status and appending to the payment history.
func (e *Entry) ApplyPayment(p Payment) error {
	if e.Kind != KindOutstanding {
		return ErrNotOutstanding
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.Amount > e.RemainingAmount {
		return ErrPaymentExceedsRemaining
	}

	e.PaidAmount += p.Amount
	e.RemainingAmount = e.Amount - e.PaidAmount
	e.Status = StatusForOutstanding(e.Amount, e.PaidAmount)
	e.PaymentHistory = append(e.PaymentHistory, p)
	e.touch(p.Actor)
	return nil
}

// ConsumeCredit deducts amount from a credit entry's remaining balance,
// recording the draw in the payment history. reference names the charge the
// credit was applied to.
func (e *Entry) ConsumeCredit(amount int64, reference, actor string, date time.Time) error {
	if e.Kind != KindCredit {
		return ErrNotCredit
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > e.RemainingAmount {
		return ErrPaymentExceedsRemaining
	}

	e.PaidAmount += amount
	e.RemainingAmount = e.Amount - e.PaidAmount
	e.Status = StatusForCredit(e.Amount, e.PaidAmount, e.RefundedTotal())
	e.PaymentHistory = append(e.PaymentHistory, Payment{
		Amount:    amount,
		Date:      date,
		Method:    MethodCredit,
		Reference: reference,
		Actor:     actor,
	})
	e.touch(actor)
	return nil
}

// ApplyRefund returns part of a credit entry's remaining balance as cash,
// appending to the refund history. For credit entries PaidAmount tracks the
// cumulative consumed-or-refunded total.
func (e *Entry) ApplyRefund(r Refund) error {
	if e.Kind != KindCredit {
		return ErrNotCredit
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.Amount > e.RemainingAmount {
		return ErrRefundExceedsRemaining
	}

	e.PaidAmount += r.Amount
	e.RemainingAmount = e.Amount - e.PaidAmount
	e.RefundHistory = append(e.RefundHistory, r)
	e.Status = StatusForCredit(e.Amount, e.PaidAmount, e.RefundedTotal())
	e.touch(r.Actor)
	return nil
}

// RefundedTotal sums the refund history.
func (e *Entry) RefundedTotal() int64 {
	var total int64
	for _, r := range e.RefundHistory {
		total += r.Amount
	}
	return total
}

// CheckBalance verifies the core invariant for outstanding and credit
// entries: PaidAmount + RemainingAmount == Amount.
func (e *Entry) CheckBalance() error {
	if e.Kind != KindOutstanding && e.Kind != KindCredit {
		return nil
	}
	if e.PaidAmount+e.RemainingAmount != e.Amount {
		return fmt.Errorf("entry %s violates balance invariant: paid %d + remaining %d != amount %d",
			e.ID, e.PaidAmount, e.RemainingAmount, e.Amount)
	}
	return nil
}

func (e *Entry) touch(actor string) {
	e.UpdatedAt = time.Now()
	if actor != "" {
		e.UpdatedBy = actor
	}
	e.Version++
}

// CreditConsumption records how much a single credit entry contributed to
// satisfying a charge, making the link between a charge and the credit it
// drew from auditable without re-querying later.
type CreditConsumption struct {
	EntryID      uuid.UUID     `json:"entry_id"`
	Deduction    int64         `json:"deduction"` // Stored in minor units (pence)
	NewPaid      int64         `json:"new_paid"`
	NewRemaining int64         `json:"new_remaining"`
	NewStatus    PaymentStatus `json:"new_status"`
}
