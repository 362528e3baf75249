package stream

import (
	"context"
	"time"
)

// Topic names for the mention pipeline streams.
const (
	TopicRaw          = "mentions:raw"
	TopicDeduplicated = "mentions:deduplicated"
	TopicProcessed    = "mentions:processed"
)

// Message is one delivered stream entry. ID is broker-assigned and is the
// handle used to acknowledge the entry within its consumer group.
type Message struct {
	ID     string
	Values map[string]string
}

// Broker provides append-only topics with consumer-group semantics:
// competing consumers in the same group split entries, separate groups each
// see the full topic, and unacknowledged entries stay pending for redelivery.
type Broker interface {
	Publish(ctx context.Context, topic string, values map[string]string) (string, error)
	EnsureGroup(ctx context.Context, topic, group string) error
	Consume(ctx context.Context, topic, group, consumer string, count int64, block time.Duration) ([]Message, error)
	Ack(ctx context.Context, topic, group string, ids ...string) error
	Close() error
}
