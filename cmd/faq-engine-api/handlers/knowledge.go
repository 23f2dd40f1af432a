package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/assistant"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

const defaultListLimit = 100

// KnowledgeAdmin is the curation surface of the knowledge base.
type KnowledgeAdmin interface {
	List(ctx context.Context, filter storage.KnowledgeFilter) ([]storage.KnowledgeEntry, error)
	Save(ctx context.Context, key, display, answer string, verified bool) (*storage.KnowledgeEntry, error)
	Verify(ctx context.Context, key, answer string) (*storage.KnowledgeEntry, error)
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (*storage.KnowledgeStats, error)
}

// StageMetrics reports per-stage counters.
type StageMetrics interface {
	Snapshot() []assistant.StageStats
}

// KnowledgeHandler handles curation requests.
type KnowledgeHandler struct {
	logger  *observability.Logger
	store   KnowledgeAdmin
	metrics StageMetrics
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(logger *observability.Logger, store KnowledgeAdmin, metrics StageMetrics) *KnowledgeHandler {
	return &KnowledgeHandler{logger: logger, store: store, metrics: metrics}
}

// KnowledgeListDTO is the response of GET /knowledge.
type KnowledgeListDTO struct {
	Entries []storage.KnowledgeEntry `json:"entries"`
	Count   int                      `json:"count"`
}

// UpsertKnowledgeDTO is the body of PUT /knowledge.
type UpsertKnowledgeDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Verified *bool  `json:"verified,omitempty"`
}

// VerifyKnowledgeDTO is the body of POST /knowledge/verify.
type VerifyKnowledgeDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// StatsDTO is the response of GET /stats.
type StatsDTO struct {
	Knowledge *storage.KnowledgeStats `json:"knowledge"`
	Stages    []assistant.StageStats  `json:"stages,omitempty"`
}

// List handles GET /knowledge.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := storage.KnowledgeFilter{
		Status: storage.ParseKnowledgeStatus(r.URL.Query().Get("status")),
		Limit:  intParam(r, "limit", defaultListLimit),
		Offset: intParam(r, "offset", 0),
	}

	entries, err := h.store.List(ctx, filter)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to list knowledge")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list knowledge", "")
		return
	}
	if entries == nil {
		entries = []storage.KnowledgeEntry{}
	}
	writeJSON(w, h.logger, http.StatusOK, KnowledgeListDTO{Entries: entries, Count: len(entries)})
}

// Upsert handles PUT /knowledge. Curated entries are verified unless the
// body says otherwise.
func (h *KnowledgeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpsertKnowledgeDTO
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	key := textnorm.MatchingKey(req.Question)
	if key == "" {
		writeError(w, h.logger, http.StatusBadRequest, "question is required", "")
		return
	}
	if req.Answer == "" {
		writeError(w, h.logger, http.StatusBadRequest, "answer is required", "")
		return
	}

	verified := req.Verified == nil || *req.Verified
	entry, err := h.store.Save(ctx, key, req.Question, req.Answer, verified)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to save knowledge")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to save entry", "")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, entry)
}

// Verify handles POST /knowledge/verify.
func (h *KnowledgeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VerifyKnowledgeDTO
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	key := textnorm.MatchingKey(req.Question)
	if key == "" {
		writeError(w, h.logger, http.StatusBadRequest, "question is required", "")
		return
	}

	entry, err := h.store.Verify(ctx, key, req.Answer)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "entry not found", "")
		return
	case errors.Is(err, knowledge.ErrNoAnswer):
		writeError(w, h.logger, http.StatusUnprocessableEntity, "entry has no answer", "")
		return
	case err != nil:
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to verify knowledge")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to verify entry", "")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, entry)
}

// Delete handles DELETE /knowledge?question=.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := textnorm.MatchingKey(r.URL.Query().Get("question"))
	if key == "" {
		writeError(w, h.logger, http.StatusBadRequest, "question is required", "")
		return
	}

	err := h.store.Delete(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "entry not found", "")
	case err != nil:
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to delete knowledge")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete entry", "")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Stats handles GET /stats.
func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to read knowledge stats")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to read stats", "")
		return
	}

	resp := StatsDTO{Knowledge: stats}
	if h.metrics != nil {
		resp.Stages = h.metrics.Snapshot()
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
