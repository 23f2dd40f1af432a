package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implements an in-process cache and broker for single-node
// deployments and tests.
type MemoryClient struct {
	items   *gocache.Cache
	maxSize int

	mu   sync.Mutex
	subs map[string]map[int]chan []byte
	next int
}

// NewMemoryClient creates a new in-memory cache client. Entries beyond
// maxSize are refused until expired entries are swept.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryClient{
		items:   gocache.New(5*time.Minute, time.Minute),
		maxSize: maxSize,
		subs:    make(map[string]map[int]chan []byte),
	}
}

// Get retrieves a value from cache.
func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v.([]byte), nil
}

// Set stores a value in cache with TTL. A non-positive ttl never expires.
func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.maxSize {
		c.items.DeleteExpired()
		if c.items.ItemCount() >= c.maxSize {
			return nil
		}
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.items.Set(key, value, ttl)
	return nil
}

// Delete removes a value from cache.
func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *MemoryClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
	return nil
}

// Close drops all entries and closes subscriber channels.
func (c *MemoryClient) Close() error {
	c.items.Flush()

	c.mu.Lock()
	defer c.mu.Unlock()
	for channel, subs := range c.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(c.subs, channel)
	}
	return nil
}

// Publish delivers a JSON-encoded message to current subscribers. Slow
// subscribers with a full buffer miss the message.
func (c *MemoryClient) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs[channel] {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel.
func (c *MemoryClient) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 100)

	c.mu.Lock()
	id := c.next
	c.next++
	if c.subs[channel] == nil {
		c.subs[channel] = make(map[int]chan []byte)
	}
	c.subs[channel][id] = ch
	c.mu.Unlock()

	stopped := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stopped)
			c.mu.Lock()
			defer c.mu.Unlock()
			if subs, ok := c.subs[channel]; ok {
				if _, ok := subs[id]; ok {
					delete(subs, id)
					close(ch)
				}
			}
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stopped:
		}
	}()

	return ch, unsubscribe, nil
}
