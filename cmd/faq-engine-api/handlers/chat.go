package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-engine-api/middleware"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/assistant"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Responder answers chat messages.
type Responder interface {
	Respond(ctx context.Context, userID, message string) (*assistant.Reply, error)
}

// HistoryReader lists recorded turns.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]storage.ChatLogEntry, error)
}

// Quota reports and resets the daily generation quota.
type Quota interface {
	Remaining(ctx context.Context, userID string) (int, error)
	Reset(ctx context.Context, userID string) error
	DailyLimit() int
}

// ChatHandler handles the conversational endpoints.
type ChatHandler struct {
	logger    *observability.Logger
	responder Responder
	history   HistoryReader
	quota     Quota
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, responder Responder, history HistoryReader, quota Quota) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		responder: responder,
		history:   history,
		quota:     quota,
	}
}

// ChatRequestDTO is the body of POST /chat.
type ChatRequestDTO struct {
	Message string `json:"message"`
}

// ChatResponseDTO is the reply to a chat message.
type ChatResponseDTO struct {
	UserMessage       string `json:"user_message"`
	BotResponse       string `json:"bot_response"`
	RemainingRequests int    `json:"remaining_requests"`
	Stage             string `json:"stage"`
	IsCode            bool   `json:"is_code"`
	Language          string `json:"language,omitempty"`
}

// HistoryEntryDTO is one recorded turn.
type HistoryEntryDTO struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponseDTO lists recorded turns, oldest first.
type HistoryResponseDTO struct {
	Messages []HistoryEntryDTO `json:"messages"`
}

// LimitsResponseDTO reports the caller's quota.
type LimitsResponseDTO struct {
	RemainingRequests int `json:"remaining_requests"`
	DailyLimit        int `json:"daily_limit"`
}

// ResetLimitRequestDTO is the body of POST /limits/reset.
type ResetLimitRequestDTO struct {
	UserID string `json:"user_id"`
}

// Chat handles POST /chat. Form-encoded bodies with a message field are
// accepted as well as JSON.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequestDTO
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		req.Message = r.FormValue("message")
	} else if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	userID := middleware.UserFromContext(ctx)
	reply, err := h.responder.Respond(ctx, userID, req.Message)
	if err != nil {
		h.logger.WithContext(ctx).WithUser(userID).Error().Err(err).Msg("Chat turn failed")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to process message", "")
		return
	}

	if reply.Stage == assistant.StageInvalid {
		writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{"bot_response": reply.Text})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChatResponseDTO{
		UserMessage:       req.Message,
		BotResponse:       reply.Text,
		RemainingRequests: reply.Remaining,
		Stage:             string(reply.Stage),
		IsCode:            reply.IsCode,
		Language:          reply.Language,
	})
}

// History handles GET /chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserFromContext(ctx)
	if userID == "" {
		writeError(w, h.logger, http.StatusUnauthorized, "user identity required", "")
		return
	}

	limit := intParam(r, "limit", defaultHistoryLimit)
	if limit == 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.history.ListByUser(ctx, userID, limit)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to list chat history")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load history", "")
		return
	}

	resp := HistoryResponseDTO{Messages: make([]HistoryEntryDTO, 0, len(entries))}
	for _, e := range entries {
		resp.Messages = append(resp.Messages, HistoryEntryDTO{
			UserMessage: e.UserMessage,
			BotResponse: e.BotResponse,
			Stage:       e.Stage,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Limits handles GET /limits.
func (h *ChatHandler) Limits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	remaining, err := h.quota.Remaining(ctx, middleware.UserFromContext(ctx))
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to read quota")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to read limits", "")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, LimitsResponseDTO{
		RemainingRequests: remaining,
		DailyLimit:        h.quota.DailyLimit(),
	})
}

// ResetLimit handles POST /limits/reset.
func (h *ChatHandler) ResetLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResetLimitRequestDTO
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required", "")
		return
	}

	if err := h.quota.Reset(ctx, req.UserID); err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Failed to reset quota")
		writeError(w, h.logger, http.StatusInternalServerError, "failed to reset limit", "")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, LimitsResponseDTO{
		RemainingRequests: h.quota.DailyLimit(),
		DailyLimit:        h.quota.DailyLimit(),
	})
}
