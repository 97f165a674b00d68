package cache

import (
	"context"
	"sync"
	"time"

	"github.com/example/ec-checkout/internal/command"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryIdempotencyStore is the in-process counterpart of
// RedisIdempotencyStore, used with the memory driver and in tests.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	locks   map[string]time.Time
	results map[string]memoryEntry
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		now:     time.Now,
		locks:   make(map[string]time.Time),
		results: make(map[string]memoryEntry),
	}
}

func (s *MemoryIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := lockKey(scope, key)
	if exp, ok := s.locks[k]; ok && s.now().Before(exp) {
		return false, nil
	}
	s.locks[k] = s.now().Add(s.ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey(scope, key)] = memoryEntry{value: value, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := resultKey(scope, key)
	e, ok := s.results[k]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.results, k)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryIdempotencyStore) Forget(ctx context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, lockKey(scope, key))
	delete(s.results, resultKey(scope, key))
	return nil
}

var _ command.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
