package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashStore records content hashes that have passed through the pipeline.
// Add is an atomic test-and-set: it returns true when the hash was newly
// recorded and false when it was already present.
type HashStore interface {
	Add(ctx context.Context, hash string) (bool, error)
}

const hashKeyPrefix = "mentions:hash:"

// RedisHashStore keeps one key per hash with a TTL so the dedup working set
// stays bounded instead of growing forever.
type RedisHashStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisHashStore(client *redis.Client, ttl time.Duration) *RedisHashStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisHashStore{client: client, ttl: ttl}
}

func (s *RedisHashStore) Add(ctx context.Context, hash string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("hash store is not initialized")
	}
	added, err := s.client.SetNX(ctx, hashKeyPrefix+hash, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx content hash: %w", err)
	}
	return added, nil
}

// MemoryHashStore is the in-process HashStore used by tests and local runs.
type MemoryHashStore struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

func NewMemoryHashStore() *MemoryHashStore {
	return &MemoryHashStore{hashes: make(map[string]struct{})}
}

func (s *MemoryHashStore) Add(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.hashes[hash]; exists {
		return false, nil
	}
	s.hashes[hash] = struct{}{}
	return true, nil
}

// Len reports the number of recorded hashes.
func (s *MemoryHashStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}
