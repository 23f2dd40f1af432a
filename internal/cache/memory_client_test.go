package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return err == ErrCacheMiss
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)

	require.NoError(t, c.Set(ctx, AnswerKey("what is go"), []byte("a"), 0))
	require.NoError(t, c.Set(ctx, AnswerKey("what is rust"), []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("c"), 0))

	require.NoError(t, c.DeleteByPrefix(ctx, AnswerPrefix))

	_, err := c.Get(ctx, AnswerKey("what is go"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestMemoryClient_MaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err := c.Get(ctx, "c")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Overwriting an existing key is always allowed.
	require.NoError(t, c.Set(ctx, "a", []byte("10"), 0))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), got)
}

func TestMemoryClient_PubSub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewMemoryClient(10)

	ch, unsubscribe, err := c.Subscribe(ctx, ChannelKnowledgeChanged)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, ChannelKnowledgeChanged, map[string]string{"question": "what is go"}))
	require.NoError(t, c.Publish(ctx, "elsewhere", "ignored"))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"question":"what is go"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestMemoryClient_SubscribeEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewMemoryClient(10)

	ch, _, err := c.Subscribe(ctx, "x")
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "a:b:c", CacheKey("a", "b", "c"))
	assert.Equal(t, "kb:answer:what is go", AnswerKey("what is go"))
}
