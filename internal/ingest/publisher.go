package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/stream"
)

// Publisher pushes fetched mention candidates onto the raw topic.
type Publisher struct {
	broker stream.Broker
	logger zerolog.Logger
}

func NewPublisher(broker stream.Broker, logger zerolog.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger}
}

// PublishAll stamps ingestion time and publishes every event. One failed
// publish is logged and skipped; the rest still go out.
func (p *Publisher) PublishAll(ctx context.Context, events []stream.MentionEvent) (int, error) {
	if p == nil || p.broker == nil {
		return 0, fmt.Errorf("publisher is not initialized")
	}

	published := 0
	for _, event := range events {
		if event.IngestedAt == nil {
			now := time.Now().UTC()
			event.IngestedAt = &now
		}
		if err := event.Validate(); err != nil {
			p.logger.Warn().Err(err).Str("url", event.URL).Msg("skipping invalid candidate")
			continue
		}

		if _, err := p.broker.Publish(ctx, stream.TopicRaw, event.Encode()); err != nil {
			p.logger.Error().Err(err).Str("url", event.URL).Msg("publish raw mention failed")
			continue
		}
		published++
	}

	p.logger.Info().Int("published", published).Int("fetched", len(events)).Msg("ingestion batch published")
	return published, nil
}

// Run fetches from every source for every target and publishes the results.
func Run(ctx context.Context, sources []Source, targets []Target, limit int, publisher *Publisher, logger zerolog.Logger) error {
	var firstErr error
	for _, target := range targets {
		for _, source := range sources {
			events, err := source.Fetch(ctx, target, limit)
			if err != nil {
				logger.Error().Err(err).
					Str("source", source.Name()).
					Str("brand", target.BrandName).
					Msg("source fetch failed")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if _, err := publisher.PublishAll(ctx, events); err != nil {
				return err
			}
		}
	}
	return firstErr
}
