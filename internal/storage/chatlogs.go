package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatLogRepository stores conversation turns.
type ChatLogRepository struct {
	db DB
}

// NewChatLogRepository creates a new chat log repository.
func NewChatLogRepository(db DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

// Append records a turn. ID and CreatedAt are filled in when unset.
func (r *ChatLogRepository) Append(ctx context.Context, entry *ChatLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_logs (id, user_id, user_message, bot_response, stage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.UserMessage, entry.BotResponse, entry.Stage, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append chat log: %w", err)
	}
	return nil
}

// ListByUser returns the user's most recent turns in chronological order.
func (r *ChatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]ChatLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, user_message, bot_response, stage, created_at
		FROM chat_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	defer rows.Close()

	var entries []ChatLogEntry
	for rows.Next() {
		var e ChatLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserMessage, &e.BotResponse, &e.Stage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// DeleteByUser removes every turn of a user and returns how many were removed.
func (r *ChatLogRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete chat logs: %w", err)
	}
	return res.RowsAffected()
}
