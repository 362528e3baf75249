package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/ai"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/dedup"
	"horse.fit/mentions/internal/enrich"
	"horse.fit/mentions/internal/relevance"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
)

// MentionStore is the relational surface the processor writes through.
type MentionStore interface {
	GetOrCreateBrand(ctx context.Context, name string) (int64, error)
	InsertMention(ctx context.Context, rec db.MentionRecord) (int64, bool, error)
	RecentBrandTitles(ctx context.Context, brandID int64, limit int) ([]string, error)
}

// Indexer is the full-text projection. Failures here are logged, never fatal.
type Indexer interface {
	IndexMention(ctx context.Context, doc search.Document) error
}

// Analyzer produces sentiment, entities, and embeddings. Each call may fail
// independently; the processor degrades instead of dropping the mention.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, brand, title, content string) (ai.Sentiment, error)
	ExtractEntities(ctx context.Context, title, content string) (map[string][]string, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Fetcher pulls full page text when the event snippet is too short.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options configures the processing consumer.
type Options struct {
	Topic               string
	Group               string
	Consumer            string
	BatchSize           int64
	Block               time.Duration
	RelevanceThreshold  int
	SimilarityThreshold float64
	RecentWindow        int
	MinSnippetChars     int
	Concurrency         int
}

// Processor is the analysis consumer: it filters for relevance and near
// duplicates, analyzes admitted mentions, and fans the result out to the
// relational store and the full-text index under a shared identifier.
type Processor struct {
	broker   stream.Broker
	hashes   dedup.HashStore
	store    MentionStore
	index    Indexer
	analyzer Analyzer
	fetcher  Fetcher
	logger   zerolog.Logger
	opts     Options
	pool     *ants.Pool
}

func NewProcessor(broker stream.Broker, hashes dedup.HashStore, store MentionStore, index Indexer, analyzer Analyzer, fetcher Fetcher, logger zerolog.Logger, opts Options) (*Processor, error) {
	if broker == nil || store == nil || analyzer == nil {
		return nil, fmt.Errorf("processor requires a broker, store, and analyzer")
	}

	if opts.Topic == "" {
		opts.Topic = stream.TopicRaw
	}
	if opts.Group == "" {
		opts.Group = "mention-processors"
	}
	if opts.Consumer == "" {
		opts.Consumer = "processor-1"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.RelevanceThreshold <= 0 {
		opts.RelevanceThreshold = relevance.AdmissionThreshold
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = relevance.NearDuplicateThreshold
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = relevance.RecentTitleWindow
	}
	if opts.MinSnippetChars <= 0 {
		opts.MinSnippetChars = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	pool, err := ants.NewPool(opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Processor{
		broker:   broker,
		hashes:   hashes,
		store:    store,
		index:    index,
		analyzer: analyzer,
		fetcher:  fetcher,
		logger:   logger,
		opts:     opts,
		pool:     pool,
	}, nil
}

// Run consumes until the context is cancelled. Batch entries are dispatched
// onto the worker pool; an entry whose handling fails stays unacknowledged
// so the group redelivers it.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.broker.EnsureGroup(ctx, p.opts.Topic, p.opts.Group); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	p.logger.Info().
		Str("topic", p.opts.Topic).
		Str("group", p.opts.Group).
		Str("consumer", p.opts.Consumer).
		Int("concurrency", p.opts.Concurrency).
		Msg("mention processor started")

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info().Msg("mention processor stopped")
			return nil
		}

		messages, err := p.broker.Consume(ctx, p.opts.Topic, p.opts.Group, p.opts.Consumer, p.opts.BatchSize, p.opts.Block)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			p.logger.Error().Err(err).Msg("consume mentions failed")
			continue
		}

		var wg sync.WaitGroup
		for _, message := range messages {
			message := message
			wg.Add(1)
			if err := p.pool.Submit(func() {
				defer wg.Done()
				if err := p.handle(ctx, message); err != nil {
					p.logger.Error().Err(err).Str("message_id", message.ID).Msg("mention processing failed")
				}
			}); err != nil {
				wg.Done()
				p.logger.Error().Err(err).Msg("submit to worker pool failed")
			}
		}
		wg.Wait()
	}
}

// Close releases the worker pool.
func (p *Processor) Close() {
	if p != nil && p.pool != nil {
		p.pool.Release()
	}
}

func (p *Processor) handle(ctx context.Context, message stream.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event, err := stream.DecodeEvent(message.Values)
	if err != nil {
		if errors.Is(err, stream.ErrMalformedEvent) {
			p.logger.Warn().Err(err).Str("message_id", message.ID).Msg("dropping malformed event")
			return p.ack(ctx, message.ID)
		}
		return fmt.Errorf("decode event: %w", err)
	}

	// The hash check runs inline when the processor consumes the raw topic
	// directly; a standalone dedup stage passes pre-hashed events instead.
	if p.hashes != nil && event.ContentHash == "" {
		hash := dedup.ContentHash(event.URL, event.Title)
		added, err := p.hashes.Add(ctx, hash)
		if err != nil {
			return fmt.Errorf("record content hash: %w", err)
		}
		if !added {
			p.logger.Debug().Str("url", event.URL).Str("content_hash", hash).Msg("duplicate mention dropped")
			return p.ack(ctx, message.ID)
		}
		event.ContentHash = hash
	}

	// Enrichment may run as its own stage; when it has not, derive the
	// annotations inline.
	if event.EnrichedAt == nil {
		event = enrich.Annotate(event)
	}

	content := event.ContentSnippet
	if p.fetcher != nil && len([]rune(content)) < p.opts.MinSnippetChars {
		if fetched, err := p.fetcher.Fetch(ctx, event.URL); err == nil && fetched != "" {
			content = fetched
		} else if err != nil {
			p.logger.Debug().Err(err).Str("url", event.URL).Msg("content fetch failed, using snippet")
		}
	}

	brandID, err := p.store.GetOrCreateBrand(ctx, event.BrandName)
	if err != nil {
		return fmt.Errorf("resolve brand: %w", err)
	}

	score := relevance.Score(event.Title, content, event.BrandName)
	if score < p.opts.RelevanceThreshold {
		p.logger.Info().
			Str("url", event.URL).
			Str("brand", event.BrandName).
			Int("score", score).
			Msg("mention below relevance threshold dropped")
		return p.ack(ctx, message.ID)
	}

	recent, err := p.store.RecentBrandTitles(ctx, brandID, p.opts.RecentWindow)
	if err != nil {
		return fmt.Errorf("load recent titles: %w", err)
	}
	if best, dup := relevance.IsNearDuplicate(event.Title, recent, p.opts.SimilarityThreshold); dup {
		p.logger.Info().
			Str("url", event.URL).
			Float64("similarity", best).
			Msg("near-duplicate mention dropped")
		return p.ack(ctx, message.ID)
	}

	sentiment, err := p.analyzer.AnalyzeSentiment(ctx, event.BrandName, event.Title, content)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", event.URL).Msg("sentiment analysis failed, storing neutral")
		sentiment = ai.NeutralSentiment()
	}

	var entitiesJSON json.RawMessage
	if entities, err := p.analyzer.ExtractEntities(ctx, event.Title, content); err != nil {
		p.logger.Warn().Err(err).Str("url", event.URL).Msg("entity extraction failed, storing none")
	} else if encoded, err := json.Marshal(entities); err == nil {
		entitiesJSON = encoded
	}

	var embeddingLiteral *string
	if vector, err := p.analyzer.EmbedText(ctx, ai.PrepareEmbeddingInput(event.Title, content)); err != nil {
		p.logger.Warn().Err(err).Str("url", event.URL).Msg("embedding failed, storing without vector")
	} else if literal, err := db.ToVectorLiteral(vector); err != nil {
		p.logger.Warn().Err(err).Str("url", event.URL).Msg("embedding rejected, storing without vector")
	} else {
		embeddingLiteral = &literal
	}

	now := time.Now().UTC()
	ingestedAt := now
	if event.IngestedAt != nil {
		ingestedAt = *event.IngestedAt
	}

	record := db.MentionRecord{
		BrandID:          brandID,
		Source:           event.Source,
		Title:            event.Title,
		URL:              event.URL,
		Content:          optionalString(content),
		Author:           optionalString(event.Author),
		Points:           event.Points,
		SentimentLabel:   &sentiment.Label,
		SentimentScore:   &sentiment.Score,
		Entities:         entitiesJSON,
		EmbeddingLiteral: embeddingLiteral,
		PublishedAt:      event.PublishedAt,
		IngestedAt:       ingestedAt,
		ProcessedAt:      now,
	}

	mentionID, inserted, err := p.store.InsertMention(ctx, record)
	if err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}

	if inserted {
		p.indexMention(ctx, mentionID, brandID, event, content, sentiment, now)
		p.notifyProcessed(ctx, mentionID, event, sentiment)
	} else {
		p.logger.Debug().
			Str("url", event.URL).
			Int64("mention_id", mentionID).
			Msg("mention already persisted, skipping fan-out")
	}

	return p.ack(ctx, message.ID)
}

// indexMention projects the mention into the full-text index under the
// relational id. Index failures must not fail the mention.
func (p *Processor) indexMention(ctx context.Context, mentionID, brandID int64, event stream.MentionEvent, content string, sentiment ai.Sentiment, processedAt time.Time) {
	if p.index == nil {
		return
	}

	doc := search.Document{
		MentionID:      mentionID,
		BrandID:        brandID,
		BrandName:      event.BrandName,
		Title:          event.Title,
		Content:        content,
		URL:            event.URL,
		Source:         event.Source,
		Author:         event.Author,
		Points:         event.Points,
		SentimentScore: &sentiment.Score,
		SentimentLabel: sentiment.Label,
		Domain:         event.Domain,
		Language:       event.Language,
		WordCount:      event.WordCount,
		ReadingTime:    event.ReadingTime,
		QualityScore:   event.QualityScore,
		PublishedDate:  event.PublishedAt,
		IngestedDate:   event.IngestedAt,
		ProcessedDate:  &processedAt,
	}

	if err := p.index.IndexMention(ctx, doc); err != nil {
		p.logger.Error().Err(err).Int64("mention_id", mentionID).Msg("full-text indexing failed")
	}
}

// notifyProcessed emits a completion event. Best-effort: the mention is
// already durable in the relational store.
func (p *Processor) notifyProcessed(ctx context.Context, mentionID int64, event stream.MentionEvent, sentiment ai.Sentiment) {
	values := map[string]string{
		"mention_id":      fmt.Sprint(mentionID),
		"brand_name":      event.BrandName,
		"url":             event.URL,
		"source":          event.Source,
		"sentiment_label": sentiment.Label,
	}
	if _, err := p.broker.Publish(ctx, stream.TopicProcessed, values); err != nil {
		p.logger.Warn().Err(err).Int64("mention_id", mentionID).Msg("processed notification failed")
	}
}

func (p *Processor) ack(ctx context.Context, id string) error {
	if err := p.broker.Ack(ctx, p.opts.Topic, p.opts.Group, id); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
