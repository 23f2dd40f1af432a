// Package cache provides the answer cache and change notifications for the
// FAQ engine.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Broker fans messages out to subscribers of a channel.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Store is a cache that can also broadcast changes.
type Store interface {
	Client
	Broker
}

// CacheKey generates a cache key from components.
func CacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// AnswerKey is the cache key of an exact-match answer.
func AnswerKey(normalizedQuestion string) string {
	return CacheKey("kb", "answer", normalizedQuestion)
}

// AnswerPrefix covers every cached answer.
const AnswerPrefix = "kb:answer:"

// ChannelKnowledgeChanged carries knowledge base change events.
const ChannelKnowledgeChanged = "kb:changed"
