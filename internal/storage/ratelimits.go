package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RateLimitRepository persists per-user daily request counters. Days are
// "YYYY-MM-DD" strings, so a lexicographic comparison orders them.
type RateLimitRepository struct {
	db DB
}

// NewRateLimitRepository creates a new rate limit repository.
func NewRateLimitRepository(db DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Count returns the user's counter for day, creating it at zero and rolling
// it over when the stored date is older.
func (r *RateLimitRepository) Count(ctx context.Context, userID, day string) (int, error) {
	query := `
		INSERT INTO rate_limits (user_id, request_count, last_reset_date)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			request_count = CASE
				WHEN rate_limits.last_reset_date < excluded.last_reset_date THEN 0
				ELSE rate_limits.request_count
			END,
			last_reset_date = CASE
				WHEN rate_limits.last_reset_date < excluded.last_reset_date THEN excluded.last_reset_date
				ELSE rate_limits.last_reset_date
			END
		RETURNING request_count
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("read rate limit: %w", err)
	}
	return count, nil
}

// Increment adds one request to the user's counter for day and returns the
// new value. A stale counter restarts at one.
func (r *RateLimitRepository) Increment(ctx context.Context, userID, day string) (int, error) {
	query := `
		INSERT INTO rate_limits (user_id, request_count, last_reset_date)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			request_count = CASE
				WHEN rate_limits.last_reset_date < excluded.last_reset_date THEN 1
				ELSE rate_limits.request_count + 1
			END,
			last_reset_date = CASE
				WHEN rate_limits.last_reset_date < excluded.last_reset_date THEN excluded.last_reset_date
				ELSE rate_limits.last_reset_date
			END
		RETURNING request_count
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment rate limit: %w", err)
	}
	return count, nil
}

// Reset zeroes the user's counter and stamps it with day.
func (r *RateLimitRepository) Reset(ctx context.Context, userID, day string) error {
	query := `
		INSERT INTO rate_limits (user_id, request_count, last_reset_date)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			request_count = 0,
			last_reset_date = excluded.last_reset_date
	`
	if _, err := r.db.ExecContext(ctx, query, userID, day); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}

// Get returns the stored counter without rolling it over.
func (r *RateLimitRepository) Get(ctx context.Context, userID string) (*RateLimitCounter, error) {
	query := `SELECT user_id, request_count, last_reset_date FROM rate_limits WHERE user_id = $1`
	c := &RateLimitCounter{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.UserID, &c.RequestCount, &c.LastResetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit: %w", err)
	}
	return c, nil
}
