package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroker implements Broker on Redis Streams. Topic retention is bounded
// with an approximate MAXLEN trim on every append.
type RedisBroker struct {
	client *redis.Client
	maxLen int64
	logger zerolog.Logger
}

func NewRedisBroker(ctx context.Context, redisURL string, maxLen int64, logger zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if maxLen <= 0 {
		maxLen = 10000
	}

	return &RedisBroker{
		client: client,
		maxLen: maxLen,
		logger: logger,
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, values map[string]string) (string, error) {
	if b == nil || b.client == nil {
		return "", fmt.Errorf("redis broker is not initialized")
	}

	wire := make(map[string]any, len(values))
	for key, value := range values {
		wire[key] = value
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: b.maxLen,
		Approx: true,
		Values: wire,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", topic, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group from the start of the stream,
// creating the stream itself when it does not exist yet. Re-creating an
// existing group is a no-op.
func (b *RedisBroker) EnsureGroup(ctx context.Context, topic, group string) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis broker is not initialized")
	}

	err := b.client.XGroupCreateMkStream(ctx, topic, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", group, topic, err)
	}
	return nil
}

func (b *RedisBroker) Consume(ctx context.Context, topic, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("redis broker is not initialized")
	}
	if count <= 0 {
		count = 1
	}

	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{topic, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", topic, group, err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			values := make(map[string]string, len(entry.Values))
			for key, value := range entry.Values {
				values[key] = fmt.Sprint(value)
			}
			messages = append(messages, Message{ID: entry.ID, Values: values})
		}
	}
	return messages, nil
}

func (b *RedisBroker) Ack(ctx context.Context, topic, group string, ids ...string) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis broker is not initialized")
	}
	if len(ids) == 0 {
		return nil
	}
	if err := b.client.XAck(ctx, topic, group, ids...).Err(); err != nil {
		return fmt.Errorf("xack %s/%s: %w", topic, group, err)
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (b *RedisBroker) Ping(ctx context.Context) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("redis broker is not initialized")
	}
	return b.client.Ping(ctx).Err()
}

// Client exposes the underlying connection for sibling stores sharing it.
func (b *RedisBroker) Client() *redis.Client {
	if b == nil {
		return nil
	}
	return b.client
}

func (b *RedisBroker) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
