package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes ledger events to their primary topic. Keys are
// entry IDs so all events for one entry land on the same partition.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes messages the archiver could not decode to a
// dead letter topic together with the failure reason.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers need, extracted
// so tests can substitute a fake writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
