package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes a value to a topic keyed by wallet ID. Keys
// matter: the hash balancer maps a wallet's messages to one partition, which
// is what keeps settlements for a wallet in order.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks undecodable messages on the DLQ topic together
// with the reason they were rejected.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the slice of kafka.Writer the producers use; tests substitute
// a mock for it.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
