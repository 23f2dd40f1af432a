// Package knowledge is the FAQ knowledge base service: exact lookup with a
// read-through answer cache, curated and learned writes, and change
// notifications for derived indexes.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

var (
	// ErrNotFound is returned when no entry exists for a question.
	ErrNotFound = storage.ErrNotFound
	// ErrNoAnswer is returned when verifying a placeholder without an answer.
	ErrNoAnswer = errors.New("entry has no answer")
)

// Repository is the persistence the store builds on.
type Repository interface {
	FindExact(ctx context.Context, normalized string) (*storage.KnowledgeEntry, error)
	Save(ctx context.Context, entry *storage.KnowledgeEntry) error
	SavePlaceholder(ctx context.Context, normalized, display string) (bool, error)
	AllQuestions(ctx context.Context, verifiedOnly bool) ([]storage.QuestionRecord, error)
	List(ctx context.Context, filter storage.KnowledgeFilter) ([]storage.KnowledgeEntry, error)
	SetVerified(ctx context.Context, normalized string, verified bool) error
	Delete(ctx context.Context, normalized string) error
	Stats(ctx context.Context) (*storage.KnowledgeStats, error)
}

// Operation names a kind of change.
type Operation string

const (
	OpSave        Operation = "save"
	OpPlaceholder Operation = "placeholder"
	OpVerify      Operation = "verify"
	OpDelete      Operation = "delete"
)

// ChangeEvent describes a write to the knowledge base.
type ChangeEvent struct {
	Question  string    `json:"question"`
	Operation Operation `json:"operation"`
	Origin    string    `json:"origin"`
	At        time.Time `json:"at"`
}

// Config holds store settings.
type Config struct {
	Cache    cache.Client // optional answer cache
	Broker   cache.Broker // optional cross-process change fan-out
	CacheTTL time.Duration
	Logger   *observability.Logger
}

// Store is the knowledge base service.
type Store struct {
	repo     Repository
	cache    cache.Client
	broker   cache.Broker
	cacheTTL time.Duration
	origin   string
	logger   *observability.Logger

	mu        sync.RWMutex
	listeners []func(ChangeEvent)
}

// NewStore creates a store over repo.
func NewStore(repo Repository, cfg Config) *Store {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	return &Store{
		repo:     repo,
		cache:    cfg.Cache,
		broker:   cfg.Broker,
		cacheTTL: cfg.CacheTTL,
		origin:   uuid.NewString(),
		logger:   cfg.Logger.WithComponent("knowledge"),
	}
}

// OnChange registers fn to run after every local or remote change.
func (s *Store) OnChange(fn func(ChangeEvent)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// FindExact returns the entry stored under a normalized question, consulting
// the answer cache first.
func (s *Store) FindExact(ctx context.Context, key string) (*storage.KnowledgeEntry, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cache.AnswerKey(key)); err == nil {
			var entry storage.KnowledgeEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				return &entry, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("question", key).Msg("answer cache read failed")
		}
	}

	entry, err := s.repo.FindExact(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(entry); err == nil {
			if err := s.cache.Set(ctx, cache.AnswerKey(key), data, s.cacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("question", key).Msg("answer cache write failed")
			}
		}
	}
	return entry, nil
}

// Save upserts an answer under key. Last writer wins.
func (s *Store) Save(ctx context.Context, key, display, answer string, verified bool) (*storage.KnowledgeEntry, error) {
	entry := &storage.KnowledgeEntry{
		NormalizedQuestion: key,
		DisplayQuestion:    display,
		Answer:             answer,
		Verified:           verified,
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, err
	}
	s.changed(ctx, key, OpSave)
	return entry, nil
}

// SavePlaceholder records key as awaiting an answer unless an entry already
// exists, and returns the stored entry.
func (s *Store) SavePlaceholder(ctx context.Context, key, display string) (*storage.KnowledgeEntry, error) {
	created, err := s.repo.SavePlaceholder(ctx, key, display)
	if err != nil {
		return nil, err
	}
	if created {
		s.changed(ctx, key, OpPlaceholder)
	}
	return s.repo.FindExact(ctx, key)
}

// AllQuestions returns answered entries for index building.
func (s *Store) AllQuestions(ctx context.Context, verifiedOnly bool) ([]storage.QuestionRecord, error) {
	return s.repo.AllQuestions(ctx, verifiedOnly)
}

// List returns entries for curation.
func (s *Store) List(ctx context.Context, filter storage.KnowledgeFilter) ([]storage.KnowledgeEntry, error) {
	return s.repo.List(ctx, filter)
}

// Verify marks key as curated. A non-empty answer replaces the stored one.
func (s *Store) Verify(ctx context.Context, key, answer string) (*storage.KnowledgeEntry, error) {
	current, err := s.repo.FindExact(ctx, key)
	if err != nil {
		return nil, err
	}

	if answer != "" {
		current.Answer = answer
		current.Verified = true
		if err := s.repo.Save(ctx, current); err != nil {
			return nil, err
		}
	} else {
		if current.IsPlaceholder() {
			return nil, fmt.Errorf("verify %q: %w", key, ErrNoAnswer)
		}
		if err := s.repo.SetVerified(ctx, key, true); err != nil {
			return nil, err
		}
		current.Verified = true
	}

	s.changed(ctx, key, OpVerify)
	return current, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.changed(ctx, key, OpDelete)
	return nil
}

// Stats summarises the knowledge base.
func (s *Store) Stats(ctx context.Context) (*storage.KnowledgeStats, error) {
	return s.repo.Stats(ctx)
}

// changed drops the cached answer, runs listeners and broadcasts the event.
func (s *Store) changed(ctx context.Context, key string, op Operation) {
	event := ChangeEvent{Question: key, Operation: op, Origin: s.origin, At: time.Now().UTC()}

	s.apply(ctx, event)

	if s.broker != nil {
		if err := s.broker.Publish(ctx, cache.ChannelKnowledgeChanged, event); err != nil {
			s.logger.Warn().Err(err).Str("question", key).Msg("publish knowledge change failed")
		}
	}
}

func (s *Store) apply(ctx context.Context, event ChangeEvent) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.AnswerKey(event.Question)); err != nil {
			s.logger.Warn().Err(err).Str("question", event.Question).Msg("answer cache invalidation failed")
		}
	}

	s.mu.RLock()
	listeners := append([]func(ChangeEvent){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}
}

// Follow applies change events published by other processes until ctx ends.
// Events from this store are ignored.
func (s *Store) Follow(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}

	events, unsubscribe, err := s.broker.Subscribe(ctx, cache.ChannelKnowledgeChanged)
	if err != nil {
		return fmt.Errorf("subscribe to knowledge changes: %w", err)
	}

	go func() {
		defer unsubscribe()
		for data := range events {
			var event ChangeEvent
			if err := json.Unmarshal(data, &event); err != nil {
				s.logger.Warn().Err(err).Msg("malformed knowledge change event")
				continue
			}
			if event.Origin == s.origin {
				continue
			}
			s.logger.Debug().Str("question", event.Question).Str("operation", string(event.Operation)).Msg("remote knowledge change")
			s.apply(ctx, event)
		}
	}()
	return nil
}
