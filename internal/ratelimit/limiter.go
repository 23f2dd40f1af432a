// Package ratelimit enforces the per-user daily quota on generation calls.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

// DefaultDailyLimit is the number of generation calls a user may make per day.
const DefaultDailyLimit = 20

// DayLayout formats the calendar day a counter belongs to.
const DayLayout = "2006-01-02"

// Store persists daily counters. Implementations roll a counter over to zero
// when asked about a later day than the one it was last reset on.
type Store interface {
	Count(ctx context.Context, userID, day string) (int, error)
	Increment(ctx context.Context, userID, day string) (int, error)
	Reset(ctx context.Context, userID, day string) error
}

// Config holds limiter settings.
type Config struct {
	DailyLimit int
	Location   *time.Location
	Now        func() time.Time
	Logger     *observability.Logger
}

// Limiter gates generation calls per user and calendar day. Anonymous users
// (empty ID) are never limited.
type Limiter struct {
	store  Store
	limit  int
	loc    *time.Location
	now    func() time.Time
	logger *observability.Logger
}

// NewLimiter creates a limiter over store.
func NewLimiter(store Store, cfg Config) *Limiter {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultDailyLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	return &Limiter{
		store:  store,
		limit:  cfg.DailyLimit,
		loc:    cfg.Location,
		now:    cfg.Now,
		logger: cfg.Logger.WithComponent("ratelimit"),
	}
}

// DailyLimit returns the configured quota.
func (l *Limiter) DailyLimit() int {
	return l.limit
}

// Today returns the current day key in the limiter's timezone.
func (l *Limiter) Today() string {
	return l.now().In(l.loc).Format(DayLayout)
}

// CanRequest reports whether the user may make another generation call today.
func (l *Limiter) CanRequest(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		l.logger.Debug().Msg("anonymous request bypasses the daily limit")
		return true, nil
	}
	count, err := l.store.Count(ctx, userID, l.Today())
	if err != nil {
		return false, fmt.Errorf("check rate limit: %w", err)
	}
	return count < l.limit, nil
}

// RecordRequest counts one successful generation call against the user.
func (l *Limiter) RecordRequest(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	count, err := l.store.Increment(ctx, userID, l.Today())
	if err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	l.logger.WithUser(userID).Debug().Int("count", count).Int("limit", l.limit).Msg("generation request recorded")
	return nil
}

// Remaining returns how many generation calls the user has left today.
func (l *Limiter) Remaining(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return l.limit, nil
	}
	count, err := l.store.Count(ctx, userID, l.Today())
	if err != nil {
		return 0, fmt.Errorf("read remaining requests: %w", err)
	}
	if count >= l.limit {
		return 0, nil
	}
	return l.limit - count, nil
}

// Reset clears the user's counter for today.
func (l *Limiter) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := l.store.Reset(ctx, userID, l.Today()); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}
