package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/ai"
	"horse.fit/mentions/internal/db"
	"horse.fit/mentions/internal/dedup"
	"horse.fit/mentions/internal/search"
	"horse.fit/mentions/internal/stream"
)

type fakeStore struct {
	mu       sync.Mutex
	brands   map[string]int64
	nextID   int64
	inserts  []db.MentionRecord
	byURL    map[string]int64
	recent   []string
	titleErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		brands: make(map[string]int64),
		byURL:  make(map[string]int64),
	}
}

func (s *fakeStore) GetOrCreateBrand(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, exists := s.brands[name]; exists {
		return id, nil
	}
	s.nextID++
	s.brands[name] = s.nextID
	return s.nextID, nil
}

func (s *fakeStore) InsertMention(_ context.Context, rec db.MentionRecord) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, exists := s.byURL[rec.URL]; exists {
		return id, false, nil
	}
	s.nextID++
	s.byURL[rec.URL] = s.nextID
	s.inserts = append(s.inserts, rec)
	return s.nextID, true, nil
}

func (s *fakeStore) RecentBrandTitles(_ context.Context, _ int64, _ int) ([]string, error) {
	if s.titleErr != nil {
		return nil, s.titleErr
	}
	return s.recent, nil
}

type fakeAnalyzer struct {
	sentiment    ai.Sentiment
	sentimentErr error
	entitiesErr  error
	embedErr     error
}

func (a *fakeAnalyzer) AnalyzeSentiment(_ context.Context, _, _, _ string) (ai.Sentiment, error) {
	if a.sentimentErr != nil {
		return ai.NeutralSentiment(), a.sentimentErr
	}
	if a.sentiment.Label == "" {
		return ai.Sentiment{Label: "Positive", Score: 0.7, Reason: "test"}, nil
	}
	return a.sentiment, nil
}

func (a *fakeAnalyzer) ExtractEntities(_ context.Context, _, _ string) (map[string][]string, error) {
	if a.entitiesErr != nil {
		return nil, a.entitiesErr
	}
	return map[string][]string{"organizations": {"Acme"}}, nil
}

func (a *fakeAnalyzer) EmbedText(_ context.Context, _ string) ([]float32, error) {
	if a.embedErr != nil {
		return nil, a.embedErr
	}
	vector := make([]float32, db.EmbeddingDimensions)
	for i := range vector {
		vector[i] = 0.01
	}
	return vector, nil
}

type fakeIndexer struct {
	mu   sync.Mutex
	docs []search.Document
}

func (i *fakeIndexer) IndexMention(_ context.Context, doc search.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = append(i.docs, doc)
	return nil
}

type fakeFetcher struct {
	text  string
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.text == "" {
		return "", errors.New("fetch failed")
	}
	return f.text, nil
}

func relevantEvent() stream.MentionEvent {
	return stream.MentionEvent{
		Source:         "hackernews",
		Title:          "Acme launches new developer platform",
		URL:            "https://example.com/acme-launch",
		BrandName:      "Acme",
		ContentSnippet: strings.Repeat("Acme is praised in this long writeup about the platform launch. ", 4),
	}
}

func newTestProcessor(t *testing.T, broker stream.Broker, store MentionStore, index Indexer, analyzer Analyzer, fetcher Fetcher) *Processor {
	t.Helper()

	processor, err := NewProcessor(broker, dedup.NewMemoryHashStore(), store, index, analyzer, fetcher, zerolog.Nop(), Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	t.Cleanup(processor.Close)
	return processor
}

func deliver(t *testing.T, broker *stream.MemoryBroker, processor *Processor, values map[string]string) stream.Message {
	t.Helper()

	ctx := context.Background()
	if err := broker.EnsureGroup(ctx, processor.opts.Topic, processor.opts.Group); err != nil {
		t.Fatalf("EnsureGroup returned error: %v", err)
	}
	if _, err := broker.Publish(ctx, processor.opts.Topic, values); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	messages, err := broker.Consume(ctx, processor.opts.Topic, processor.opts.Group, processor.opts.Consumer, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(messages))
	}
	return messages[0]
}

func TestProcessorPersistsAndIndexesRelevantMention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	index := &fakeIndexer{}
	processor := newTestProcessor(t, broker, store, index, &fakeAnalyzer{}, nil)

	if err := broker.EnsureGroup(ctx, stream.TopicProcessed, "probe"); err != nil {
		t.Fatalf("EnsureGroup probe: %v", err)
	}

	message := deliver(t, broker, processor, relevantEvent().Encode())
	if err := processor.handle(ctx, message); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if len(store.inserts) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(store.inserts))
	}
	record := store.inserts[0]
	if record.SentimentLabel == nil || *record.SentimentLabel != "Positive" {
		t.Fatalf("sentiment label = %v", record.SentimentLabel)
	}
	if record.EmbeddingLiteral == nil || !strings.HasPrefix(*record.EmbeddingLiteral, "[") {
		t.Fatalf("embedding literal missing")
	}
	if len(record.Entities) == 0 {
		t.Fatalf("entities missing")
	}

	if len(index.docs) != 1 {
		t.Fatalf("expected 1 indexed document, got %d", len(index.docs))
	}
	if index.docs[0].MentionID != store.byURL[record.URL] {
		t.Fatalf("index doc id %d does not match relational id %d", index.docs[0].MentionID, store.byURL[record.URL])
	}

	notifications, err := broker.Consume(ctx, stream.TopicProcessed, "probe", "p1", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume processed returned error: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 processed notification, got %d", len(notifications))
	}

	if pending := broker.Pending(processor.opts.Topic, processor.opts.Group); len(pending) != 0 {
		t.Fatalf("message should be acknowledged, %d pending", len(pending))
	}
}

func TestProcessorDropsLowRelevanceMention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, &fakeAnalyzer{}, nil)

	event := relevantEvent()
	event.Title = "ok"
	event.ContentSnippet = strings.Repeat("nothing about the brand here in this long enough snippet of text. ", 3)

	message := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, message); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if len(store.inserts) != 0 {
		t.Fatalf("irrelevant mention must not be persisted")
	}
	if pending := broker.Pending(processor.opts.Topic, processor.opts.Group); len(pending) != 0 {
		t.Fatalf("dropped mention must still be acknowledged")
	}
}

func TestProcessorDropsNearDuplicateTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	store.recent = []string{"Acme launches new developer platform!"}
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, &fakeAnalyzer{}, nil)

	message := deliver(t, broker, processor, relevantEvent().Encode())
	if err := processor.handle(ctx, message); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if len(store.inserts) != 0 {
		t.Fatalf("near-duplicate mention must not be persisted")
	}
}

func TestProcessorDegradesWhenAnalysisFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	analyzer := &fakeAnalyzer{
		sentimentErr: errors.New("model down"),
		entitiesErr:  errors.New("model down"),
		embedErr:     errors.New("model down"),
	}
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, analyzer, nil)

	message := deliver(t, broker, processor, relevantEvent().Encode())
	if err := processor.handle(ctx, message); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if len(store.inserts) != 1 {
		t.Fatalf("mention must still be persisted when analysis degrades")
	}
	record := store.inserts[0]
	if record.SentimentLabel == nil || *record.SentimentLabel != "Neutral" {
		t.Fatalf("sentiment must degrade to Neutral, got %v", record.SentimentLabel)
	}
	if record.SentimentScore == nil || *record.SentimentScore != 0.0 {
		t.Fatalf("score must degrade to 0.0, got %v", record.SentimentScore)
	}
	if record.EmbeddingLiteral != nil {
		t.Fatalf("embedding must be absent when the embedder fails")
	}
	if len(record.Entities) != 0 {
		t.Fatalf("entities must be absent when extraction fails")
	}
}

func TestProcessorSkipsFanOutForExistingURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	index := &fakeIndexer{}
	processor := newTestProcessor(t, broker, store, index, &fakeAnalyzer{}, nil)

	event := relevantEvent()
	first := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, first); err != nil {
		t.Fatalf("first handle returned error: %v", err)
	}

	// Same URL, different title, so the hash and near-duplicate checks
	// do not trip before the relational insert.
	event.Title = "Acme developer platform gets a second look"
	second := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, second); err != nil {
		t.Fatalf("second handle returned error: %v", err)
	}

	if len(store.inserts) != 1 {
		t.Fatalf("duplicate URL must not insert twice, got %d inserts", len(store.inserts))
	}
	if len(index.docs) != 1 {
		t.Fatalf("duplicate URL must not re-index, got %d docs", len(index.docs))
	}
	if pending := broker.Pending(processor.opts.Topic, processor.opts.Group); len(pending) != 0 {
		t.Fatalf("duplicate must still be acknowledged")
	}
}

func TestProcessorDropsRepeatedContentHash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, &fakeAnalyzer{}, nil)

	event := relevantEvent()
	first := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, first); err != nil {
		t.Fatalf("first handle returned error: %v", err)
	}

	second := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, second); err != nil {
		t.Fatalf("second handle returned error: %v", err)
	}

	if len(store.inserts) != 1 {
		t.Fatalf("identical event must be dropped by the hash check, got %d inserts", len(store.inserts))
	}
}

func TestProcessorFetchesContentForShortSnippets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	fetcher := &fakeFetcher{text: strings.Repeat("Acme appears throughout this fetched article body. ", 5)}
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, &fakeAnalyzer{}, fetcher)

	event := relevantEvent()
	event.ContentSnippet = "Acme."

	message := deliver(t, broker, processor, event.Encode())
	if err := processor.handle(ctx, message); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch call, got %d", fetcher.calls)
	}
	if len(store.inserts) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(store.inserts))
	}
	if store.inserts[0].Content == nil || !strings.Contains(*store.inserts[0].Content, "fetched article body") {
		t.Fatalf("persisted content should come from the fetcher")
	}
}

func TestProcessorLeavesMessagePendingOnStoreFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := newFakeStore()
	store.titleErr = fmt.Errorf("database down")
	processor := newTestProcessor(t, broker, store, &fakeIndexer{}, &fakeAnalyzer{}, nil)

	message := deliver(t, broker, processor, relevantEvent().Encode())
	if err := processor.handle(ctx, message); err == nil {
		t.Fatalf("expected error when the store fails")
	}

	if pending := broker.Pending(processor.opts.Topic, processor.opts.Group); len(pending) != 1 {
		t.Fatalf("failed message must stay pending for redelivery, got %d", len(pending))
	}
}
