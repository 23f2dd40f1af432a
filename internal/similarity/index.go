package similarity

import (
	"context"
	"fmt"
	"sync"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

// QuestionSource supplies the answered questions an Index is built from.
type QuestionSource interface {
	AllQuestions(ctx context.Context, verifiedOnly bool) ([]storage.QuestionRecord, error)
}

// Match is the closest stored question to an input.
type Match struct {
	Question string
	Answer   string
	Verified bool
	Score    float64
}

// Index is a lazily rebuilt Matcher snapshot over a QuestionSource. Reads
// share the snapshot; Invalidate forces the next read to rebuild it.
type Index struct {
	source       QuestionSource
	verifiedOnly bool

	mu       sync.RWMutex
	matcher  *Matcher
	records  []storage.QuestionRecord
	stale    bool
	volatile bool
}

// NewIndex creates an index. With verifiedOnly set, unverified answers never
// enter the corpus.
func NewIndex(source QuestionSource, verifiedOnly bool) *Index {
	return &Index{source: source, verifiedOnly: verifiedOnly, stale: true}
}

// Volatile makes every read rebuild the snapshot from the source. Use it when
// other processes write to the source without a change feed reaching this one.
func (ix *Index) Volatile() {
	ix.mu.Lock()
	ix.volatile = true
	ix.stale = true
	ix.mu.Unlock()
}

// Invalidate marks the snapshot stale.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.stale = true
	ix.mu.Unlock()
}

// Size returns the number of questions in the current snapshot, rebuilding
// it when stale.
func (ix *Index) Size(ctx context.Context) (int, error) {
	m, _, err := ix.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return m.Len(), nil
}

// Match returns the closest answered question to text. It returns an error
// matching ErrEmptyCorpus when nothing is indexed, and nil when text is
// empty.
func (ix *Index) Match(ctx context.Context, text string) (*Match, error) {
	m, records, err := ix.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	i, score := m.FindBestMatch(text)
	if i < 0 {
		return nil, nil
	}
	rec := records[i]
	return &Match{
		Question: rec.NormalizedQuestion,
		Answer:   rec.Answer,
		Verified: rec.Verified,
		Score:    score,
	}, nil
}

func (ix *Index) snapshot(ctx context.Context) (*Matcher, []storage.QuestionRecord, error) {
	ix.mu.RLock()
	if !ix.stale && ix.matcher != nil {
		m, r := ix.matcher, ix.records
		ix.mu.RUnlock()
		return m, r, nil
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.stale && ix.matcher != nil {
		return ix.matcher, ix.records, nil
	}

	records, err := ix.source.AllQuestions(ctx, ix.verifiedOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("load questions: %w", err)
	}

	questions := make([]string, len(records))
	for i, r := range records {
		questions[i] = r.NormalizedQuestion
	}
	m, err := NewMatcher(questions)
	if err != nil {
		ix.matcher, ix.records = nil, nil
		return nil, nil, err
	}

	ix.matcher, ix.records, ix.stale = m, records, ix.volatile
	return m, records, nil
}
