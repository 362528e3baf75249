package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/stream"
)

// Options configures the enrichment stage consumer.
type Options struct {
	Topic     string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// Worker annotates raw events in place on the topic: it consumes with its own
// group, republishes the annotated copy, and acknowledges the original. The
// enriched_at stamp keeps the republished copy from being annotated again.
type Worker struct {
	broker stream.Broker
	logger zerolog.Logger
	opts   Options
}

func NewWorker(broker stream.Broker, logger zerolog.Logger, opts Options) *Worker {
	if opts.Topic == "" {
		opts.Topic = stream.TopicRaw
	}
	if opts.Group == "" {
		opts.Group = "enrichment-workers"
	}
	if opts.Consumer == "" {
		opts.Consumer = "enrich-1"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	return &Worker{broker: broker, logger: logger, opts: opts}
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.broker == nil {
		return fmt.Errorf("enrichment worker is not initialized")
	}

	if err := w.broker.EnsureGroup(ctx, w.opts.Topic, w.opts.Group); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info().
		Str("topic", w.opts.Topic).
		Str("group", w.opts.Group).
		Msg("enrichment worker started")

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().Msg("enrichment worker stopped")
			return nil
		}

		messages, err := w.broker.Consume(ctx, w.opts.Topic, w.opts.Group, w.opts.Consumer, w.opts.BatchSize, w.opts.Block)
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
				w.logger.Error().Err(err).Str("message_id", message.ID).Msg("enrichment handling failed")
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, message stream.Message) error {
	event, err := stream.DecodeEvent(message.Values)
	if err != nil {
		if errors.Is(err, stream.ErrMalformedEvent) {
			w.logger.Warn().Err(err).Str("message_id", message.ID).Msg("skipping malformed event")
			return w.broker.Ack(ctx, w.opts.Topic, w.opts.Group, message.ID)
		}
		return fmt.Errorf("decode event: %w", err)
	}

	if event.EnrichedAt != nil {
		return w.broker.Ack(ctx, w.opts.Topic, w.opts.Group, message.ID)
	}

	annotated := Annotate(event)
	if _, err := w.broker.Publish(ctx, w.opts.Topic, annotated.Encode()); err != nil {
		return fmt.Errorf("publish enriched event: %w", err)
	}

	if err := w.broker.Ack(ctx, w.opts.Topic, w.opts.Group, message.ID); err != nil {
		return fmt.Errorf("ack raw event: %w", err)
	}

	w.logger.Debug().
		Str("url", annotated.URL).
		Str("domain", annotated.Domain).
		Msg("mention enriched")
	return nil
}
