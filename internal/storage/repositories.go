package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrEmptyQuestion = errors.New("empty normalized question")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repositories aggregates all repositories.
type Repositories struct {
	Knowledge  *KnowledgeRepository
	RateLimits *RateLimitRepository
	ChatLogs   *ChatLogRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Knowledge:  NewKnowledgeRepository(db),
		RateLimits: NewRateLimitRepository(db),
		ChatLogs:   NewChatLogRepository(db),
	}
}

const knowledgeColumns = `id, normalized_question, display_question, answer, verified, created_at, updated_at`

// KnowledgeRepository handles knowledge entry persistence.
type KnowledgeRepository struct {
	db  DB
	now func() time.Time
}

// NewKnowledgeRepository creates a new knowledge repository.
func NewKnowledgeRepository(db DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// FindExact retrieves the entry stored under a normalized question.
func (r *KnowledgeRepository) FindExact(ctx context.Context, normalized string) (*KnowledgeEntry, error) {
	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries WHERE normalized_question = $1`
	entry, err := scanKnowledgeEntry(r.db.QueryRowContext(ctx, query, normalized))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find knowledge entry: %w", err)
	}
	return entry, nil
}

// Save inserts or replaces the answer stored under entry.NormalizedQuestion.
// The ID and creation time of an existing row are kept.
func (r *KnowledgeRepository) Save(ctx context.Context, entry *KnowledgeEntry) error {
	if entry.NormalizedQuestion == "" {
		return ErrEmptyQuestion
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.DisplayQuestion == "" {
		entry.DisplayQuestion = entry.NormalizedQuestion
	}
	now := r.now()

	query := `
		INSERT INTO knowledge_entries (id, normalized_question, display_question, answer, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized_question) DO UPDATE SET
			display_question = excluded.display_question,
			answer = excluded.answer,
			verified = excluded.verified,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.NormalizedQuestion, entry.DisplayQuestion,
		entry.Answer, entry.Verified, now, now,
	); err != nil {
		return fmt.Errorf("save knowledge entry: %w", err)
	}

	stored, err := r.FindExact(ctx, entry.NormalizedQuestion)
	if err != nil {
		return err
	}
	*entry = *stored
	return nil
}

// SavePlaceholder records an unanswered question. An existing entry, answered
// or not, is left untouched. It reports whether a row was created.
func (r *KnowledgeRepository) SavePlaceholder(ctx context.Context, normalized, display string) (bool, error) {
	if normalized == "" {
		return false, ErrEmptyQuestion
	}
	if display == "" {
		display = normalized
	}
	now := r.now()

	query := `
		INSERT INTO knowledge_entries (id, normalized_question, display_question, answer, verified, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $6)
		ON CONFLICT (normalized_question) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, uuid.New(), normalized, display, false, now, now)
	if err != nil {
		return false, fmt.Errorf("save placeholder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save placeholder: %w", err)
	}
	return n > 0, nil
}

// AllQuestions returns answered entries in a stable order for corpus
// building. With verifiedOnly set, unverified answers are skipped.
func (r *KnowledgeRepository) AllQuestions(ctx context.Context, verifiedOnly bool) ([]QuestionRecord, error) {
	query := `
		SELECT normalized_question, answer, verified
		FROM knowledge_entries
		WHERE answer <> ''
	`
	var args []interface{}
	if verifiedOnly {
		query += ` AND verified = $1`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, normalized_question`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var records []QuestionRecord
	for rows.Next() {
		var rec QuestionRecord
		if err := rows.Scan(&rec.NormalizedQuestion, &rec.Answer, &rec.Verified); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// List returns entries matching the filter, newest first.
func (r *KnowledgeRepository) List(ctx context.Context, filter KnowledgeFilter) ([]KnowledgeEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	switch filter.Status {
	case KnowledgeStatusPending:
		where = append(where, `answer = ''`)
	case KnowledgeStatusUnverified:
		args = append(args, false)
		where = append(where, `answer <> ''`, fmt.Sprintf(`verified = $%d`, len(args)))
	case KnowledgeStatusVerified:
		args = append(args, true)
		where = append(where, fmt.Sprintf(`verified = $%d`, len(args)))
	}

	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY updated_at DESC, normalized_question`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(` OFFSET $%d`, len(args))
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// SetVerified flips the verified flag of an existing entry.
func (r *KnowledgeRepository) SetVerified(ctx context.Context, normalized string, verified bool) error {
	query := `UPDATE knowledge_entries SET verified = $1, updated_at = $2 WHERE normalized_question = $3`
	res, err := r.db.ExecContext(ctx, query, verified, r.now(), normalized)
	if err != nil {
		return fmt.Errorf("verify knowledge entry: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the entry stored under a normalized question.
func (r *KnowledgeRepository) Delete(ctx context.Context, normalized string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE normalized_question = $1`, normalized)
	if err != nil {
		return fmt.Errorf("delete knowledge entry: %w", err)
	}
	return expectAffected(res)
}

// KnowledgeStats summarises the knowledge base.
type KnowledgeStats struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
}

// Stats counts entries by curation state.
func (r *KnowledgeRepository) Stats(ctx context.Context) (*KnowledgeStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN answer <> '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verified = $1 THEN 1 ELSE 0 END), 0)
		FROM knowledge_entries
	`
	stats := &KnowledgeStats{}
	if err := r.db.QueryRowContext(ctx, query, true).Scan(&stats.Total, &stats.Answered, &stats.Verified); err != nil {
		return nil, fmt.Errorf("count knowledge entries: %w", err)
	}
	stats.Pending = stats.Total - stats.Answered
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKnowledgeEntry(row rowScanner) (*KnowledgeEntry, error) {
	entry := &KnowledgeEntry{}
	err := row.Scan(
		&entry.ID, &entry.NormalizedQuestion, &entry.DisplayQuestion,
		&entry.Answer, &entry.Verified, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
