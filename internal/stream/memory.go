package stream

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker with the same group semantics as the
// Redis implementation. It backs tests and single-binary local runs.
type MemoryBroker struct {
	mu     sync.Mutex
	maxLen int
	nextID int64
	topics map[string]*memoryTopic
}

type memoryTopic struct {
	entries []memoryEntry
	groups  map[string]*memoryGroup
}

type memoryEntry struct {
	seq    int64
	id     string
	values map[string]string
}

type memoryGroup struct {
	lastDelivered int64
	pending       map[string]Message
}

func NewMemoryBroker(maxLen int) *MemoryBroker {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryBroker{
		maxLen: maxLen,
		topics: make(map[string]*memoryTopic),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, values map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	b.nextID++
	entry := memoryEntry{
		seq:    b.nextID,
		id:     fmt.Sprintf("%d-0", b.nextID),
		values: cloneValues(values),
	}
	t.entries = append(t.entries, entry)
	if len(t.entries) > b.maxLen {
		t.entries = t.entries[len(t.entries)-b.maxLen:]
	}
	return entry.id, nil
}

func (b *MemoryBroker) EnsureGroup(_ context.Context, topic, group string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	if _, exists := t.groups[group]; !exists {
		t.groups[group] = &memoryGroup{pending: make(map[string]Message)}
	}
	return nil
}

func (b *MemoryBroker) Consume(ctx context.Context, topic, group, _ string, count int64, _ time.Duration) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	g, exists := t.groups[group]
	if !exists {
		return nil, fmt.Errorf("consumer group %s does not exist on %s", group, topic)
	}
	if count <= 0 {
		count = 1
	}

	var messages []Message
	for _, entry := range t.entries {
		if entry.seq <= g.lastDelivered {
			continue
		}
		message := Message{ID: entry.id, Values: cloneValues(entry.values)}
		g.pending[entry.id] = message
		g.lastDelivered = entry.seq
		messages = append(messages, message)
		if int64(len(messages)) >= count {
			break
		}
	}
	return messages, nil
}

func (b *MemoryBroker) Ack(_ context.Context, topic, group string, ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	g, exists := t.groups[group]
	if !exists {
		return fmt.Errorf("consumer group %s does not exist on %s", group, topic)
	}
	for _, id := range ids {
		delete(g.pending, id)
	}
	return nil
}

// Pending reports delivered-but-unacknowledged messages for a group.
func (b *MemoryBroker) Pending(topic, group string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(topic)
	g, exists := t.groups[group]
	if !exists {
		return nil
	}
	pending := make([]Message, 0, len(g.pending))
	for _, message := range g.pending {
		pending = append(pending, message)
	}
	return pending
}

// Len reports the retained entry count for a topic.
func (b *MemoryBroker) Len(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topic(topic).entries)
}

func (b *MemoryBroker) Close() error {
	return nil
}

func (b *MemoryBroker) topic(name string) *memoryTopic {
	t, exists := b.topics[name]
	if !exists {
		t = &memoryTopic{groups: make(map[string]*memoryGroup)}
		b.topics[name] = t
	}
	return t
}

func cloneValues(values map[string]string) map[string]string {
	clone := make(map[string]string, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}
