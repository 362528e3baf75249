package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/stream"
)

const statsEvery = 100

// Options configures the dedup stage consumer.
type Options struct {
	InTopic   string
	OutTopic  string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// Worker consumes raw mention events, drops events whose content hash was
// already seen, and republishes first-seen events with the hash annotation.
type Worker struct {
	broker stream.Broker
	hashes HashStore
	logger zerolog.Logger
	opts   Options

	processed int64
	dropped   int64
}

func NewWorker(broker stream.Broker, hashes HashStore, logger zerolog.Logger, opts Options) *Worker {
	if opts.InTopic == "" {
		opts.InTopic = stream.TopicRaw
	}
	if opts.OutTopic == "" {
		opts.OutTopic = stream.TopicDeduplicated
	}
	if opts.Group == "" {
		opts.Group = "dedup-workers"
	}
	if opts.Consumer == "" {
		opts.Consumer = "dedup-1"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	return &Worker{
		broker: broker,
		hashes: hashes,
		logger: logger,
		opts:   opts,
	}
}

// Run consumes until the context is cancelled. Messages in flight at
// cancellation stay unacknowledged so the group redelivers them.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.broker == nil || w.hashes == nil {
		return fmt.Errorf("dedup worker is not initialized")
	}

	if err := w.broker.EnsureGroup(ctx, w.opts.InTopic, w.opts.Group); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info().
		Str("topic", w.opts.InTopic).
		Str("group", w.opts.Group).
		Str("consumer", w.opts.Consumer).
		Msg("dedup worker started")

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().
				Int64("processed", w.processed).
				Int64("dropped", w.dropped).
				Msg("dedup worker stopped")
			return nil
		}

		messages, err := w.broker.Consume(ctx, w.opts.InTopic, w.opts.Group, w.opts.Consumer, w.opts.BatchSize, w.opts.Block)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error().Err(err).Msg("consume raw mentions failed")
			continue
		}

		for _, message := range messages {
			if err := ctx.Err(); err != nil {
				break
			}
			if err := w.handle(ctx, message); err != nil {
				w.logger.Error().Err(err).Str("message_id", message.ID).Msg("dedup handling failed")
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, message stream.Message) error {
	event, err := stream.DecodeEvent(message.Values)
	if err != nil {
		if errors.Is(err, stream.ErrMalformedEvent) {
			w.logger.Warn().Err(err).Str("message_id", message.ID).Msg("dropping malformed event")
			return w.broker.Ack(ctx, w.opts.InTopic, w.opts.Group, message.ID)
		}
		return fmt.Errorf("decode event: %w", err)
	}

	hash := ContentHash(event.URL, event.Title)
	added, err := w.hashes.Add(ctx, hash)
	if err != nil {
		return fmt.Errorf("record content hash: %w", err)
	}

	if !added {
		w.dropped++
		w.logger.Debug().
			Str("url", event.URL).
			Str("content_hash", hash).
			Msg("duplicate mention dropped")
		return w.broker.Ack(ctx, w.opts.InTopic, w.opts.Group, message.ID)
	}

	event.ContentHash = hash
	if _, err := w.broker.Publish(ctx, w.opts.OutTopic, event.Encode()); err != nil {
		return fmt.Errorf("publish deduplicated event: %w", err)
	}

	if err := w.broker.Ack(ctx, w.opts.InTopic, w.opts.Group, message.ID); err != nil {
		return fmt.Errorf("ack raw event: %w", err)
	}

	w.processed++
	if w.processed%statsEvery == 0 {
		w.logger.Info().
			Int64("processed", w.processed).
			Int64("dropped", w.dropped).
			Msg("dedup progress")
	}
	return nil
}
