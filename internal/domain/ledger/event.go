package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies committed ledger mutations published to collaborators.
type EventType string

const (
	EventEntryCreated    EventType = "entry_created"
	EventPaymentRecorded EventType = "payment_recorded"
	EventCreditRefunded  EventType = "credit_refunded"
	EventEntryDeleted    EventType = "entry_deleted"
)

// Event is the envelope written to the transactional outbox and published to
// the ledger-event topic after a mutation commits. Entry is the primary
// entry after the mutation (or its last state before deletion); Related
// carries mirrored entries and consumed credit entries from the same commit.
type Event struct {
	EventID       uuid.UUID `json:"event_id" bson:"event_id"`
	Type          EventType `json:"type" bson:"type"`
	Entry         *Entry    `json:"entry" bson:"entry"`
	Related       []*Entry  `json:"related,omitempty" bson:"related,omitempty"`
	OccurredAt    time.Time `json:"occurred_at" bson:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Actor         string    `json:"actor,omitempty" bson:"actor,omitempty"`
}

// NewEvent builds an event envelope for a committed mutation.
func NewEvent(eventType EventType, entry *Entry, related []*Entry, correlationID, actor string) *Event {
	return &Event{
		EventID:       uuid.New(),
		Type:          eventType,
		Entry:         entry,
		Related:       related,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		Actor:         actor,
	}
}
