package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetops/finance-ledger/internal/domain/archive"
)

const (
	// ArchiveCollectionName is the name of the event archive collection
	ArchiveCollectionName = "ledger_events"
)

// ArchiveRepository implements the archive.Repository interface for MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) archive.Repository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores an archive record. Redelivered events are recognised by their
// event ID and skipped, keeping archival idempotent.
func (r *ArchiveRepository) Save(ctx context.Context, record *archive.Record) error {
	collection := r.db.Collection(ArchiveCollectionName)

	existing, err := r.GetByEventID(ctx, record.EventID)
	if err != nil && !errors.Is(err, archive.ErrRecordNotFound{}) {
		r.logger.Error("Failed to check for existing archive record",
			"event_id", record.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing archive record: %w", err)
	}
	if existing != nil {
		r.logger.Debug("Archive record already exists, skipping",
			"event_id", record.EventID.String())
		return nil
	}

	if _, err := collection.InsertOne(ctx, record); err != nil {
		r.logger.Error("Failed to save archive record",
			"event_id", record.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to save archive record: %w", err)
	}

	return nil
}

// GetByEventID retrieves an archive record by its event ID.
// Returns ErrRecordNotFound if no record exists for the given event.
func (r *ArchiveRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*archive.Record, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"event_id": eventID}
	var record archive.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, archive.ErrRecordNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get archive record",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archive record: %w", err)
	}

	return &record, nil
}

// ListByCustomer retrieves paginated archive records for a customer.
// Results are sorted by occurrence time in descending order (newest first).
func (r *ArchiveRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*archive.Record, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"customer_id": customerID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archive records",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list archive records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*archive.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode archive records",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archive records: %w", err)
	}

	return records, nil
}

// CountByCustomer counts the total number of archive records for a customer
func (r *ArchiveRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"customer_id": customerID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count archive records",
			"customer_id", customerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count archive records: %w", err)
	}

	return count, nil
}

// ListByTimeRange retrieves paginated archive records whose events occurred
// within the given time range, oldest first.
func (r *ArchiveRepository) ListByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*archive.Record, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{
		"occurred_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": 1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archive records by time range",
			"error", err)
		return nil, fmt.Errorf("failed to list archive records by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*archive.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode archive records",
			"error", err)
		return nil, fmt.Errorf("failed to decode archive records: %w", err)
	}

	return records, nil
}
