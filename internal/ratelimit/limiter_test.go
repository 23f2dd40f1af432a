package ratelimit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

var _ Store = (*storage.RateLimitRepository)(nil)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newSQLStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "rl.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = storage.NewMigrationManager(db, "sqlite").Migrate(ctx)
	require.NoError(t, err)
	return storage.NewRateLimitRepository(db)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    newSQLStore(t),
	}
}

func TestLimiter_DailyQuotaAndRollover(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
			l := NewLimiter(store, Config{Now: clk.Now})

			for i := 0; i < DefaultDailyLimit; i++ {
				ok, err := l.CanRequest(ctx, "u1")
				require.NoError(t, err)
				require.True(t, ok, "request %d", i+1)
				require.NoError(t, l.RecordRequest(ctx, "u1"))
			}

			ok, err := l.CanRequest(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			remaining, err := l.Remaining(ctx, "u1")
			require.NoError(t, err)
			assert.Zero(t, remaining)

			// Other users are unaffected.
			ok, err = l.CanRequest(ctx, "u2")
			require.NoError(t, err)
			assert.True(t, ok)

			clk.t = clk.t.Add(24 * time.Hour)
			ok, err = l.CanRequest(ctx, "u1")
			require.NoError(t, err)
			assert.True(t, ok)

			remaining, err = l.Remaining(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, DefaultDailyLimit, remaining)
		})
	}
}

func TestLimiter_Reset(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := NewLimiter(store, Config{DailyLimit: 2})

			require.NoError(t, l.RecordRequest(ctx, "u1"))
			require.NoError(t, l.RecordRequest(ctx, "u1"))
			ok, err := l.CanRequest(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, l.Reset(ctx, "u1"))
			remaining, err := l.Remaining(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 2, remaining)
		})
	}
}

func TestLimiter_AnonymousIsUnlimited(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(NewMemoryStore(), Config{DailyLimit: 1})

	for i := 0; i < 5; i++ {
		ok, err := l.CanRequest(ctx, "")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, l.RecordRequest(ctx, ""))
	}

	remaining, err := l.Remaining(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestLimiter_TimezoneDecidesTheDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	clk := &clock{t: time.Date(2026, 5, 1, 16, 0, 0, 0, time.UTC)}

	l := NewLimiter(NewMemoryStore(), Config{Location: tokyo, Now: clk.Now})
	assert.Equal(t, "2026-05-02", l.Today())

	utc := NewLimiter(NewMemoryStore(), Config{Now: clk.Now})
	assert.Equal(t, "2026-05-01", utc.Today())
}

type failingStore struct{}

func (failingStore) Count(context.Context, string, string) (int, error)     { return 0, errors.New("down") }
func (failingStore) Increment(context.Context, string, string) (int, error) { return 0, errors.New("down") }
func (failingStore) Reset(context.Context, string, string) error            { return errors.New("down") }

func TestLimiter_StoreErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(failingStore{}, Config{})

	_, err := l.CanRequest(ctx, "u1")
	assert.ErrorContains(t, err, "check rate limit")
	assert.ErrorContains(t, l.RecordRequest(ctx, "u1"), "record request")
	_, err = l.Remaining(ctx, "u1")
	assert.ErrorContains(t, err, "read remaining requests")
	assert.ErrorContains(t, l.Reset(ctx, "u1"), "reset rate limit")
}

func TestMemoryStore_DaysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := s.Increment(ctx, "u1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Increment(ctx, "u1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, "u1", "2026-01-02")
	require.NoError(t, err)
	assert.Zero(t, n)
}
