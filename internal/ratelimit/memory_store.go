package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// counterTTL keeps a day's counter around long enough to cover any timezone.
const counterTTL = 48 * time.Hour

// MemoryStore keeps counters in process memory, keyed by user and day.
type MemoryStore struct {
	mu       sync.Mutex
	counters *gocache.Cache
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: gocache.New(counterTTL, time.Hour)}
}

// Count returns the user's count for day.
func (s *MemoryStore) Count(ctx context.Context, userID, day string) (int, error) {
	if v, ok := s.counters.Get(dayKey(userID, day)); ok {
		return v.(int), nil
	}
	return 0, nil
}

// Increment adds one to the user's count for day.
func (s *MemoryStore) Increment(ctx context.Context, userID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(userID, day)
	if _, ok := s.counters.Get(key); !ok {
		s.counters.Set(key, 1, counterTTL)
		return 1, nil
	}
	return s.counters.IncrementInt(key, 1)
}

// Reset zeroes the user's count for day.
func (s *MemoryStore) Reset(ctx context.Context, userID, day string) error {
	s.counters.Delete(dayKey(userID, day))
	return nil
}

func dayKey(userID, day string) string {
	return "rl:" + userID + ":" + day
}
