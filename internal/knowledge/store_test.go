package knowledge

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

func newRepo(t *testing.T) *storage.KnowledgeRepository {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "kb.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = storage.NewMigrationManager(db, "sqlite").Migrate(ctx)
	require.NoError(t, err)
	return storage.NewKnowledgeRepository(db)
}

func TestStore_ExactRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), Config{Cache: cache.NewMemoryClient(100)})

	answer := "Python is a high-level programming language. ✓\n"
	_, err := s.Save(ctx, "what is python", "What is Python?", answer, true)
	require.NoError(t, err)

	got, err := s.FindExact(ctx, "what is python")
	require.NoError(t, err)
	assert.Equal(t, answer, got.Answer)

	_, err = s.FindExact(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindExact(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_WritesInvalidateCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryClient(100)
	s := NewStore(newRepo(t), Config{Cache: c})

	_, err := s.Save(ctx, "what is go", "what is go", "first", false)
	require.NoError(t, err)
	_, err = s.FindExact(ctx, "what is go")
	require.NoError(t, err)

	_, err = c.Get(ctx, cache.AnswerKey("what is go"))
	require.NoError(t, err, "lookup populates the cache")

	_, err = s.Save(ctx, "what is go", "what is go", "second", false)
	require.NoError(t, err)

	got, err := s.FindExact(ctx, "what is go")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Answer)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestStore_PlaceholderNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), Config{})

	var events []ChangeEvent
	s.OnChange(func(e ChangeEvent) { events = append(events, e) })

	e, err := s.SavePlaceholder(ctx, "what is zig", "what is zig")
	require.NoError(t, err)
	assert.True(t, e.IsPlaceholder())
	assert.False(t, e.Verified)

	_, err = s.SavePlaceholder(ctx, "what is zig", "what is zig")
	require.NoError(t, err)
	require.Len(t, events, 1, "second placeholder is a no-op")
	assert.Equal(t, OpPlaceholder, events[0].Operation)

	_, err = s.Save(ctx, "what is zig", "What is Zig?", "A language.", false)
	require.NoError(t, err)
	e, err = s.SavePlaceholder(ctx, "what is zig", "what is zig")
	require.NoError(t, err)
	assert.Equal(t, "A language.", e.Answer)
}

func TestStore_VerifyAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newRepo(t), Config{Cache: cache.NewMemoryClient(100)})

	_, err := s.SavePlaceholder(ctx, "pending", "pending")
	require.NoError(t, err)
	_, err = s.Verify(ctx, "pending", "")
	assert.ErrorIs(t, err, ErrNoAnswer)

	e, err := s.Verify(ctx, "pending", "Curated answer")
	require.NoError(t, err)
	assert.True(t, e.Verified)
	assert.Equal(t, "Curated answer", e.Answer)

	_, err = s.Save(ctx, "learned", "learned", "Generated", false)
	require.NoError(t, err)
	_, err = s.FindExact(ctx, "learned")
	require.NoError(t, err)
	_, err = s.Verify(ctx, "learned", "")
	require.NoError(t, err)
	got, err := s.FindExact(ctx, "learned")
	require.NoError(t, err)
	assert.True(t, got.Verified)

	_, err = s.Verify(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "learned"))
	_, err = s.FindExact(ctx, "learned")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "learned"), ErrNotFound)
}

func TestStore_FollowAppliesRemoteChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := cache.NewMemoryClient(100)
	repo := newRepo(t)
	writer := NewStore(repo, Config{Broker: broker})
	reader := NewStore(repo, Config{Broker: broker})

	var (
		mu       sync.Mutex
		received []ChangeEvent
	)
	reader.OnChange(func(e ChangeEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	require.NoError(t, reader.Follow(ctx))

	// Local changes reach local listeners directly, not through the broker.
	var local int
	writer.OnChange(func(ChangeEvent) { local++ })
	require.NoError(t, writer.Follow(ctx))

	_, err := writer.Save(ctx, "what is go", "what is go", "A language.", true)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0].Question == "what is go"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, local)
}
