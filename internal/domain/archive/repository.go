package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages the reporting archive. Save must be idempotent on the
// event ID so redelivered Kafka messages do not duplicate records.
type Repository interface {
	Save(ctx context.Context, record *Record) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Record, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Record, error)
	CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Record, error)
}

// ErrRecordNotFound indicates a missing archive record
type ErrRecordNotFound struct {
	EventID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "archive record not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
