// Package assistant resolves chat messages through the tiered answer
// pipeline: canned intents, exact knowledge-base hits, optional fuzzy
// matches, rate-limited generation and the learning fallback.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/formatter"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/intent"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/similarity"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

// Stage names the pipeline step that produced a reply.
type Stage string

const (
	StageInvalid   Stage = "invalid"
	StageIntent    Stage = "intent"
	StageExact     Stage = "exact"
	StageFuzzy     Stage = "fuzzy"
	StageLimit     Stage = "limit"
	StageGenerated Stage = "generated"
	StageFallback  Stage = "fallback"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageInvalid, StageIntent, StageExact, StageFuzzy,
	StageLimit, StageGenerated, StageFallback,
}

// KnowledgeStore is the knowledge base the engine reads and learns into.
type KnowledgeStore interface {
	FindExact(ctx context.Context, key string) (*storage.KnowledgeEntry, error)
	Save(ctx context.Context, key, display, answer string, verified bool) (*storage.KnowledgeEntry, error)
	SavePlaceholder(ctx context.Context, key, display string) (*storage.KnowledgeEntry, error)
}

// FuzzyIndex finds the closest stored question.
type FuzzyIndex interface {
	Match(ctx context.Context, text string) (*similarity.Match, error)
}

// Limiter gates generation calls.
type Limiter interface {
	CanRequest(ctx context.Context, userID string) (bool, error)
	RecordRequest(ctx context.Context, userID string) error
	Remaining(ctx context.Context, userID string) (int, error)
	DailyLimit() int
}

// Recorder appends finished turns to the chat history.
type Recorder interface {
	Append(ctx context.Context, entry *storage.ChatLogEntry) error
}

// Classifier labels a message with a conversational intent.
type Classifier interface {
	Classify(text string) intent.Label
}

// FuzzyConfig controls the similarity stage.
type FuzzyConfig struct {
	Enabled      bool
	Threshold    float64
	VerifiedOnly bool
}

// Config wires the engine's collaborators. Store, Limiter and Generator are
// required.
type Config struct {
	Classifier Classifier
	Store      KnowledgeStore
	Index      FuzzyIndex
	Limiter    Limiter
	Generator  generation.Client
	Recorder   Recorder
	Fuzzy      FuzzyConfig
	Logger     *observability.Logger
}

// Reply is the outcome of one turn.
type Reply struct {
	Text      string
	Stage     Stage
	Intent    intent.Label
	Remaining int
	IsCode    bool
	Language  string
}

// Engine runs the answer pipeline.
type Engine struct {
	classifier Classifier
	store      KnowledgeStore
	index      FuzzyIndex
	limiter    Limiter
	generator  generation.Client
	recorder   Recorder
	fuzzy      FuzzyConfig
	logger     *observability.Logger
	metrics    *Metrics
}

// NewEngine creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("assistant: knowledge store is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("assistant: limiter is required")
	}
	if cfg.Generator == nil {
		cfg.Generator = generation.Disabled{}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = intent.NewClassifier(nil)
	}
	if cfg.Fuzzy.Threshold <= 0 {
		cfg.Fuzzy.Threshold = 0.85
	}
	if cfg.Fuzzy.Enabled && cfg.Index == nil {
		return nil, errors.New("assistant: fuzzy matching enabled without an index")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}

	return &Engine{
		classifier: cfg.Classifier,
		store:      cfg.Store,
		index:      cfg.Index,
		limiter:    cfg.Limiter,
		generator:  cfg.Generator,
		recorder:   cfg.Recorder,
		fuzzy:      cfg.Fuzzy,
		logger:     cfg.Logger.WithComponent("assistant"),
		metrics:    newMetrics(),
	}, nil
}

// Metrics returns the engine's stage counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Respond answers message on behalf of userID. An empty userID is an
// anonymous caller. Only storage and limiter failures are returned as errors;
// generation failures end in the learning fallback.
func (e *Engine) Respond(ctx context.Context, userID, message string) (*Reply, error) {
	start := time.Now()

	reply, err := e.resolve(ctx, userID, message)
	if err != nil {
		e.logger.WithUser(userID).Error().Err(err).Msg("Failed to resolve message")
		return nil, err
	}

	if reply.Stage != StageInvalid {
		remaining, err := e.limiter.Remaining(ctx, userID)
		if err != nil {
			return nil, err
		}
		reply.Remaining = remaining
		reply.IsCode = formatter.LooksLikeCode(reply.Text)
		e.record(ctx, userID, message, reply)
	}

	e.metrics.observe(reply.Stage, time.Since(start))
	e.logger.WithUser(userID).WithStage(string(reply.Stage)).Debug().
		Str("intent", string(reply.Intent)).
		Int("remaining", reply.Remaining).
		Dur("latency", time.Since(start)).
		Msg("Message resolved")
	return reply, nil
}

func (e *Engine) resolve(ctx context.Context, userID, message string) (*Reply, error) {
	if textnorm.IsBlank(message) {
		return &Reply{Text: EmptyMessageReply, Stage: StageInvalid, Intent: intent.Unknown}, nil
	}

	key := textnorm.MatchingKey(message)
	log := e.logger.WithUser(userID)

	label := e.classifier.Classify(key)
	if text, ok := IntentReplies[label]; ok {
		return &Reply{Text: text, Stage: StageIntent, Intent: label}, nil
	}

	// Messages made only of punctuation have no key to look up or learn.
	if key == "" {
		return &Reply{Text: FallbackReply, Stage: StageFallback, Intent: label}, nil
	}

	entry, err := e.store.FindExact(ctx, key)
	switch {
	case err == nil && !entry.IsPlaceholder():
		return &Reply{Text: entry.Answer, Stage: StageExact, Intent: label}, nil
	case err == nil:
		log.Debug().Str("question", key).Msg("pending question asked again")
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("exact lookup: %w", err)
	}

	if e.fuzzy.Enabled {
		match, err := e.index.Match(ctx, key)
		switch {
		case errors.Is(err, similarity.ErrEmptyCorpus):
			log.Debug().Msg("fuzzy stage skipped on empty index")
		case err != nil:
			return nil, fmt.Errorf("fuzzy match: %w", err)
		case e.acceptFuzzy(match):
			log.Debug().Str("question", key).Str("matched", match.Question).Float64("score", match.Score).Msg("fuzzy hit")
			return &Reply{Text: match.Answer, Stage: StageFuzzy, Intent: label}, nil
		}
	}

	allowed, err := e.limiter.CanRequest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &Reply{Text: LimitReply(e.limiter.DailyLimit()), Stage: StageLimit, Intent: label}, nil
	}

	prompt := generation.BuildPrompt(message)
	result := e.generator.Generate(ctx, prompt.Text)
	if result.OK() {
		if err := e.limiter.RecordRequest(ctx, userID); err != nil {
			return nil, err
		}
		if _, err := e.store.Save(ctx, key, message, result.Text, false); err != nil {
			return nil, fmt.Errorf("save generated answer: %w", err)
		}
		reply := &Reply{Text: result.Text, Stage: StageGenerated, Intent: label}
		if prompt.IsCode {
			reply.Language = prompt.Language
		}
		return reply, nil
	}

	failure := result.Err
	if failure == nil {
		failure = generation.NewError(generation.ErrorTypeEmpty, "empty completion", false, nil)
	}
	log.Warn().
		Str("error_type", string(failure.Type)).
		Str("error", failure.Message).
		Msg("generation unavailable, learning question")

	if _, err := e.store.SavePlaceholder(ctx, key, key); err != nil {
		return nil, fmt.Errorf("save placeholder: %w", err)
	}
	return &Reply{Text: FallbackReply, Stage: StageFallback, Intent: label}, nil
}

func (e *Engine) acceptFuzzy(m *similarity.Match) bool {
	if m == nil || m.Answer == "" || m.Score < e.fuzzy.Threshold {
		return false
	}
	return m.Verified || !e.fuzzy.VerifiedOnly
}

func (e *Engine) record(ctx context.Context, userID, message string, reply *Reply) {
	if e.recorder == nil || userID == "" {
		return
	}
	err := e.recorder.Append(ctx, &storage.ChatLogEntry{
		UserID:      userID,
		UserMessage: message,
		BotResponse: reply.Text,
		Stage:       string(reply.Stage),
	})
	if err != nil {
		e.logger.WithUser(userID).Warn().Err(err).Msg("Failed to record chat turn")
	}
}

// Metrics counts resolved turns per stage.
type Metrics struct {
	mu      sync.Mutex
	counts  map[Stage]int64
	latency map[Stage]time.Duration
}

// StageStats is a snapshot of one stage's counters.
type StageStats struct {
	Stage        Stage   `json:"stage"`
	Count        int64   `json:"count"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

func newMetrics() *Metrics {
	return &Metrics{
		counts:  make(map[Stage]int64),
		latency: make(map[Stage]time.Duration),
	}
}

func (m *Metrics) observe(stage Stage, d time.Duration) {
	m.mu.Lock()
	m.counts[stage]++
	m.latency[stage] += d
	m.mu.Unlock()
}

// Count returns how many turns stage resolved.
func (m *Metrics) Count(stage Stage) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[stage]
}

// Snapshot returns counters for every stage in pipeline order.
func (m *Metrics) Snapshot() []StageStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]StageStats, 0, len(Stages))
	for _, s := range Stages {
		st := StageStats{Stage: s, Count: m.counts[s]}
		if st.Count > 0 {
			st.AvgLatencyMs = float64(m.latency[s].Microseconds()) / float64(st.Count) / 1000
		}
		out = append(out, st)
	}
	return out
}
