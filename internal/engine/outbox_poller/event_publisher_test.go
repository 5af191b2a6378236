package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/domain/outbox"
)

// MockOutboxRepo is shared across package test files
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockMessagePublisher for testing
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestKafkaEventPublisher_PublishEvent(t *testing.T) {
	logger := slog.Default()

	customerID := uuid.New()
	entry, err := ledger.NewOutstandingEntry(customerID, 4200, "hosting", "August invoice", time.Now(), "billing")
	assert.NoError(t, err)

	event := ledger.NewEvent(ledger.EventEntryCreated, entry, nil, "corr-1", "billing")
	message, err := outbox.NewMessage(event)
	assert.NoError(t, err)
	message.ID = 1

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func(repo *MockOutboxRepo, producer *MockMessagePublisher)
		expectedError error
	}{
		{
			name:    "successful publish",
			message: message,
			setupMocks: func(repo *MockOutboxRepo, producer *MockMessagePublisher) {
				producer.On("Publish", mock.Anything, entry.ID.String(), mock.Anything).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:        1,
				EventID:   uuid.New(),
				EntryID:   entry.ID,
				Status:    outbox.StatusPending,
				Payload:   []byte("invalid json"),
				CreatedAt: time.Now(),
			},
			setupMocks: func(repo *MockOutboxRepo, producer *MockMessagePublisher) {
				repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error publishing to kafka",
			message: message,
			setupMocks: func(repo *MockOutboxRepo, producer *MockMessagePublisher) {
				producer.On("Publish", mock.Anything, entry.ID.String(), mock.Anything).Return(errors.New("broker down")).Once()
			},
			expectedError: errors.New("failed to publish ledger event"),
		},
		{
			name:    "error updating outbox status",
			message: message,
			setupMocks: func(repo *MockOutboxRepo, producer *MockMessagePublisher) {
				producer.On("Publish", mock.Anything, entry.ID.String(), mock.Anything).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark outbox"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo := &MockOutboxRepo{}
			mockProducer := &MockMessagePublisher{}
			publisher := NewKafkaEventPublisher(mockOutboxRepo, mockProducer, logger)

			tt.setupMocks(mockOutboxRepo, mockProducer)
			ctx := context.Background()

			err := publisher.PublishEvent(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockProducer.AssertExpectations(t)
		})
	}
}
