package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one counter key per user and day. A new day reads a new
// key, which gives the lazy reset without a background job.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a counter store on client. Keys are namespaced by
// prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Count returns the user's count for day.
func (s *RedisStore) Count(ctx context.Context, userID, day string) (int, error) {
	n, err := s.client.Get(ctx, s.key(userID, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get counter: %w", err)
	}
	return n, nil
}

// Increment adds one to the user's count for day and refreshes its expiry.
func (s *RedisStore) Increment(ctx context.Context, userID, day string) (int, error) {
	key := s.key(userID, day)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis increment counter: %w", err)
	}
	return int(incr.Val()), nil
}

// Reset zeroes the user's count for day.
func (s *RedisStore) Reset(ctx context.Context, userID, day string) error {
	if err := s.client.Del(ctx, s.key(userID, day)).Err(); err != nil {
		return fmt.Errorf("redis reset counter: %w", err)
	}
	return nil
}

func (s *RedisStore) key(userID, day string) string {
	return s.prefix + dayKey(userID, day)
}
