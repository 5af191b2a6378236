package archive

import (
	"time"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// Record is one archived ledger event: the entry snapshot(s) a committed
// mutation produced, stored for read-only reporting collaborators. Records
// are immutable once written.
type Record struct {
	EventID       uuid.UUID        `json:"event_id" bson:"event_id"`
	EventType     ledger.EventType `json:"event_type" bson:"event_type"`
	Entry         *ledger.Entry    `json:"entry" bson:"entry"`
	Related       []*ledger.Entry  `json:"related,omitempty" bson:"related,omitempty"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at" bson:"occurred_at"`
	CorrelationID string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Actor         string           `json:"actor,omitempty" bson:"actor,omitempty"`
	ArchivedAt    time.Time        `json:"archived_at" bson:"archived_at"`
}

// NewRecord builds an archive record from a published ledger event. The
// customer ID is lifted to the top level so statement queries need not
// reach into the snapshot.
func NewRecord(event *ledger.Event) *Record {
	record := &Record{
		EventID:       event.EventID,
		EventType:     event.Type,
		Entry:         event.Entry,
		Related:       event.Related,
		OccurredAt:    event.OccurredAt,
		CorrelationID: event.CorrelationID,
		Actor:         event.Actor,
		ArchivedAt:    time.Now().UTC(),
	}
	if event.Entry != nil {
		record.CustomerID = event.Entry.CustomerID
	}
	return record
}
