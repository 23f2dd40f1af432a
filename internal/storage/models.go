// Package storage provides database models and repositories for the FAQ engine.
package storage

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeStatus filters knowledge entries by curation state.
type KnowledgeStatus string

const (
	KnowledgeStatusAll        KnowledgeStatus = "all"
	KnowledgeStatusPending    KnowledgeStatus = "pending"    // no answer yet
	KnowledgeStatusUnverified KnowledgeStatus = "unverified" // answered, not curated
	KnowledgeStatusVerified   KnowledgeStatus = "verified"
)

// ParseKnowledgeStatus maps a query value to a status. Unknown values map to
// KnowledgeStatusAll.
func ParseKnowledgeStatus(s string) KnowledgeStatus {
	switch KnowledgeStatus(s) {
	case KnowledgeStatusPending, KnowledgeStatusUnverified, KnowledgeStatusVerified:
		return KnowledgeStatus(s)
	default:
		return KnowledgeStatusAll
	}
}

// KnowledgeEntry is a question/answer pair keyed by its normalized question.
// An empty Answer marks a placeholder saved for later curation.
type KnowledgeEntry struct {
	ID                 uuid.UUID `json:"id"`
	NormalizedQuestion string    `json:"normalized_question"`
	DisplayQuestion    string    `json:"question"`
	Answer             string    `json:"answer"`
	Verified           bool      `json:"verified"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsPlaceholder reports whether the entry still waits for an answer.
func (e *KnowledgeEntry) IsPlaceholder() bool {
	return e.Answer == ""
}

// QuestionRecord is the projection used to build the similarity corpus.
type QuestionRecord struct {
	NormalizedQuestion string
	Answer             string
	Verified           bool
}

// KnowledgeFilter narrows List results.
type KnowledgeFilter struct {
	Status KnowledgeStatus
	Limit  int
	Offset int
}

// RateLimitCounter is the per-user daily request counter.
type RateLimitCounter struct {
	UserID        string `json:"user_id"`
	RequestCount  int    `json:"request_count"`
	LastResetDate string `json:"last_reset_date"` // YYYY-MM-DD
}

// ChatLogEntry records one conversational turn.
type ChatLogEntry struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
}
