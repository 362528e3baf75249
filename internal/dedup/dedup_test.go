package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/mentions/internal/stream"
)

func TestContentHashNormalizesCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	base := ContentHash("https://example.com/a", "Acme Ships")
	variants := []struct {
		url   string
		title string
	}{
		{"  https://example.com/a  ", "Acme Ships"},
		{"HTTPS://EXAMPLE.COM/A", "acme ships"},
		{"https://example.com/a", "  ACME SHIPS  "},
	}

	for _, variant := range variants {
		if got := ContentHash(variant.url, variant.title); got != base {
			t.Fatalf("expected hash for (%q, %q) to equal base hash", variant.url, variant.title)
		}
	}

	if got := ContentHash("https://example.com/b", "Acme Ships"); got == base {
		t.Fatalf("different URLs must not collide")
	}
}

func TestMemoryHashStoreAddIsTestAndSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryHashStore()

	added, err := store.Add(ctx, "h1")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if !added {
		t.Fatalf("first Add should report newly recorded")
	}

	added, err = store.Add(ctx, "h1")
	if err != nil {
		t.Fatalf("second Add returned error: %v", err)
	}
	if added {
		t.Fatalf("second Add should report already present")
	}
}

func TestWorkerForwardsFirstAndDropsRepeat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	store := NewMemoryHashStore()
	worker := NewWorker(broker, store, zerolog.Nop(), Options{})

	if err := broker.EnsureGroup(ctx, stream.TopicRaw, worker.opts.Group); err != nil {
		t.Fatalf("EnsureGroup returned error: %v", err)
	}
	if err := broker.EnsureGroup(ctx, stream.TopicDeduplicated, "probe"); err != nil {
		t.Fatalf("EnsureGroup probe returned error: %v", err)
	}

	event := stream.MentionEvent{
		Source:    "hackernews",
		Title:     "Acme on the front page",
		URL:       "https://example.com/item",
		BrandName: "Acme",
	}

	for i := 0; i < 2; i++ {
		if _, err := broker.Publish(ctx, stream.TopicRaw, event.Encode()); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
	}

	messages, err := broker.Consume(ctx, stream.TopicRaw, worker.opts.Group, worker.opts.Consumer, 10, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 raw messages, got %d", len(messages))
	}

	for _, message := range messages {
		if err := worker.handle(ctx, message); err != nil {
			t.Fatalf("handle returned error: %v", err)
		}
	}

	forwarded, err := broker.Consume(ctx, stream.TopicDeduplicated, "probe", "p1", 10, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume deduplicated returned error: %v", err)
	}
	if len(forwarded) != 1 {
		t.Fatalf("expected exactly one forwarded event, got %d", len(forwarded))
	}

	decoded, err := stream.DecodeEvent(forwarded[0].Values)
	if err != nil {
		t.Fatalf("DecodeEvent returned error: %v", err)
	}
	if decoded.ContentHash == "" {
		t.Fatalf("forwarded event must carry the content hash annotation")
	}
	if decoded.ContentHash != ContentHash(event.URL, event.Title) {
		t.Fatalf("forwarded hash does not match derived hash")
	}

	if pending := broker.Pending(stream.TopicRaw, worker.opts.Group); len(pending) != 0 {
		t.Fatalf("both raw messages should be acknowledged, %d still pending", len(pending))
	}
}

func TestWorkerAcksMalformedEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := stream.NewMemoryBroker(100)
	worker := NewWorker(broker, NewMemoryHashStore(), zerolog.Nop(), Options{})

	if err := broker.EnsureGroup(ctx, stream.TopicRaw, worker.opts.Group); err != nil {
		t.Fatalf("EnsureGroup returned error: %v", err)
	}
	if _, err := broker.Publish(ctx, stream.TopicRaw, map[string]string{"title": "no identity"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	messages, err := broker.Consume(ctx, stream.TopicRaw, worker.opts.Group, worker.opts.Consumer, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if err := worker.handle(ctx, messages[0]); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	if pending := broker.Pending(stream.TopicRaw, worker.opts.Group); len(pending) != 0 {
		t.Fatalf("malformed event should be acknowledged, %d still pending", len(pending))
	}
}
