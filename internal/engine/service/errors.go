package service

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrRetriesExhausted indicates a mutating operation kept hitting
// serialization or optimistic-lock conflicts until the retry budget ran
// out. The operation is safe to retry from the caller's side.
type ErrRetriesExhausted struct {
	Op  string
	Err error
}

func (e ErrRetriesExhausted) Error() string {
	return fmt.Sprintf("operation %s exhausted conflict retries: %v", e.Op, e.Err)
}

func (e ErrRetriesExhausted) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for ErrRetriesExhausted
func (e ErrRetriesExhausted) Is(target error) bool {
	t, ok := target.(ErrRetriesExhausted)
	if !ok {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// ErrCustomerChargeFailed reports which customer's staged writes aborted a
// bulk charge. No customer in the batch was charged.
type ErrCustomerChargeFailed struct {
	CustomerID uuid.UUID
	Err        error
}

func (e ErrCustomerChargeFailed) Error() string {
	return fmt.Sprintf("bulk charge failed for customer %s: %v", e.CustomerID, e.Err)
}

func (e ErrCustomerChargeFailed) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for ErrCustomerChargeFailed
func (e ErrCustomerChargeFailed) Is(target error) bool {
	t, ok := target.(ErrCustomerChargeFailed)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}
