package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter is shared across package test files - defined in ledger_event_test.go

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	t.Run("WrapsOriginalMessageInEnvelope", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: "ledger_events_dlq",
		}

		key := "entry-8400"
		originalValue := []byte(`{"event_type":"not json`)
		reason := "failed to unmarshal event"

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != key {
				return false
			}
			var envelope deadLetterEnvelope
			if err := json.Unmarshal(msgs[0].Value, &envelope); err != nil {
				return false
			}
			return envelope.OriginalKey == key &&
				envelope.OriginalValue == string(originalValue) &&
				envelope.DLQReason == reason &&
				envelope.Timestamp != ""
		})).Return(nil).Once()

		err := producer.PublishToDLQ(ctx, key, originalValue, reason)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("SurfacesWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: "ledger_events_dlq",
		}

		writerError := errors.New("kafka DLQ write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishToDLQ(ctx, "entry-1", []byte("payload"), "archive failure")
		require.Error(t, err)
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("NilWriterMeansDisabled", func(t *testing.T) {
		producer := &DLQProducer{
			logger:   logger,
			dlqTopic: "ledger_events_dlq",
		}

		err := producer.PublishToDLQ(ctx, "entry-1", []byte("payload"), "disabled")
		require.Error(t, err)
		assert.Equal(t, "DLQ producer not initialized", err.Error())
	})
}

func TestDLQProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ClosesWriter", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: "ledger_events_dlq",
		}
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("SurfacesCloseError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: "ledger_events_dlq",
		}
		closeError := errors.New("kafka DLQ close error")
		mockWriter.On("Close").Return(closeError).Once()

		err := producer.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, closeError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("NilWriterIsNoOp", func(t *testing.T) {
		producer := &DLQProducer{logger: logger, dlqTopic: "ledger_events_dlq"}
		require.NoError(t, producer.Close())
	})
}
