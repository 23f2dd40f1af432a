package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg ClientConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "ann", r.Header.Get(userHeader))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is go", body["message"])

		_, _ = w.Write([]byte(`{"user_message":"what is go","bot_response":"A language.","remaining_requests":19,"stage":"generated","is_code":false}`))
	}, ClientConfig{Token: "tok", UserID: "ann"})

	resp, err := c.Chat(context.Background(), "what is go")
	require.NoError(t, err)
	assert.Equal(t, "A language.", resp.BotResponse)
	assert.Equal(t, 19, resp.RemainingRequests)
	assert.Equal(t, "generated", resp.Stage)
}

func TestChat_EmptyMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"bot_response":"Please type a message 😊"}`))
	}, ClientConfig{})

	_, err := c.Chat(context.Background(), " ")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Please type a message 😊", apiErr.Message)
}

func TestHistoryAndLimits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/chat/history":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"messages":[{"user_message":"hi","bot_response":"Hello","stage":"intent","created_at":"2026-01-02T03:04:05Z"}]}`))
		case "/api/v1/limits":
			_, _ = w.Write([]byte(`{"remaining_requests":4,"daily_limit":20}`))
		default:
			http.NotFound(w, r)
		}
	}, ClientConfig{})

	history, err := c.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "intent", history[0].Stage)
	assert.Equal(t, 2026, history[0].CreatedAt.Year())

	limits, err := c.Limits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LimitsResponse{RemainingRequests: 4, DailyLimit: 20}, *limits)
}

func TestAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/limits":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid token"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}
	}, ClientConfig{})

	_, err := c.Limits(context.Background())
	assert.EqualError(t, err, "faq-engine: 401 invalid token")

	_, err = c.Health(context.Background())
	assert.EqualError(t, err, "faq-engine: 502 Bad Gateway")
}
