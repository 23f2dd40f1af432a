package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-engine-api/handlers"
	"github.com/spherical-ai/spherical/libs/faq-engine/cmd/faq-engine-api/middleware"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/bootstrap"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
)

const testSecret = "test-secret"

// devUser identifies the caller when authentication is disabled.
var devUser = map[string]string{middleware.UserHeader: "admin-dev"}

func newTestServer(t *testing.T, authEnabled bool) (*httptest.Server, *bootstrap.App) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "api.db")
	cfg.RateLimit.DailyLimit = 2
	cfg.Auth.Enabled = authEnabled
	cfg.Auth.JWTSecret = testSecret

	gen := generation.Func(func(_ context.Context, prompt string) generation.Result {
		if strings.Contains(prompt, "unanswerable") {
			return generation.Failure(generation.NewError(generation.ErrorTypeServer, "boom", true, nil))
		}
		return generation.Success("Generated answer.")
	})

	logger := observability.NopLogger()
	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger, Generator: gen})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(NewRouter(logger, NewAppConfig(cfg), app))
	t.Cleanup(srv.Close)
	return srv, app
}

func do(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := do(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ready", body["status"])
}

func TestChat_Flow(t *testing.T) {
	srv, _ := newTestServer(t, false)
	user := map[string]string{middleware.UserHeader: "alice"}

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"hello"}`, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var greeting handlers.ChatResponseDTO
	decode(t, resp, &greeting)
	assert.Equal(t, "intent", greeting.Stage)
	assert.Equal(t, 2, greeting.RemainingRequests)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"What is Go?"}`, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var generated handlers.ChatResponseDTO
	decode(t, resp, &generated)
	assert.Equal(t, "generated", generated.Stage)
	assert.Equal(t, "Generated answer.", generated.BotResponse)
	assert.Equal(t, "What is Go?", generated.UserMessage)
	assert.Equal(t, 1, generated.RemainingRequests)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/chat/history?limit=10", "", user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history handlers.HistoryResponseDTO
	decode(t, resp, &history)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].UserMessage)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/limits", "", user)
	var limits handlers.LimitsResponseDTO
	decode(t, resp, &limits)
	assert.Equal(t, 1, limits.RemainingRequests)
	assert.Equal(t, 2, limits.DailyLimit)
}

func TestChat_EmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"   "}`, devUser)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "Please type a message 😊", body["bot_response"])
}

func TestChat_FormBody(t *testing.T) {
	srv, _ := newTestServer(t, false)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/chat", strings.NewReader("message=thanks"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.UserHeader, "carol")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply handlers.ChatResponseDTO
	decode(t, resp, &reply)
	assert.Equal(t, "You're welcome! 😊", reply.BotResponse)
}

func TestChat_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":`, devUser)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistory_RequiresUser(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/chat/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDevMode_RejectsMissingIdentity(t *testing.T) {
	srv, app := newTestServer(t, false)

	for i := 0; i < 3; i++ {
		resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"What is Go?"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/stats", "", map[string]string{middleware.UserHeader: "  "})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/knowledge", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	stats, err := app.Knowledge.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestKnowledgeAdmin(t *testing.T) {
	srv, _ := newTestServer(t, false)
	base := srv.URL + "/api/v1/knowledge"

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"unanswerable question"}`, devUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"?status=pending", "", devUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending handlers.KnowledgeListDTO
	decode(t, resp, &pending)
	require.Equal(t, 1, pending.Count)
	assert.Equal(t, "unanswerable question", pending.Entries[0].NormalizedQuestion)

	resp = do(t, http.MethodPost, base+"/verify", `{"question":"unanswerable question"}`, devUser)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodPost, base+"/verify", `{"question":"Unanswerable question?","answer":"Now answered."}`, devUser)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"unanswerable question"}`, devUser)
	var reply handlers.ChatResponseDTO
	decode(t, resp, &reply)
	assert.Equal(t, "exact", reply.Stage)
	assert.Equal(t, "Now answered.", reply.BotResponse)

	resp = do(t, http.MethodPut, base, `{"question":"What is chi?","answer":"A router."}`, devUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"?status=verified", "", devUser)
	var verified handlers.KnowledgeListDTO
	decode(t, resp, &verified)
	assert.Equal(t, 2, verified.Count)

	resp = do(t, http.MethodDelete, base+"?question=what+is+chi", "", devUser)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, base+"?question=what+is+chi", "", devUser)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/stats", "", devUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats handlers.StatsDTO
	decode(t, resp, &stats)
	assert.Equal(t, 1, stats.Knowledge.Total)
	assert.NotEmpty(t, stats.Stages)
}

func TestLimits_Reset(t *testing.T) {
	srv, _ := newTestServer(t, false)
	user := map[string]string{middleware.UserHeader: "bob"}

	for _, q := range []string{"first question", "second question"} {
		resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"`+q+`"}`, user)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"third question"}`, user)
	var limited handlers.ChatResponseDTO
	decode(t, resp, &limited)
	assert.Equal(t, "limit", limited.Stage)
	assert.Contains(t, limited.BotResponse, "**2 daily request limit**")

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/limits/reset", `{"user_id":"bob"}`, devUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"third question"}`, user)
	var after handlers.ChatResponseDTO
	decode(t, resp, &after)
	assert.Equal(t, "generated", after.Stage)
}

func signToken(t *testing.T, subject string, roles []string) string {
	t.Helper()
	claims := middleware.Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "https://auth.spherical.local",
			Audience:  jwt.ClaimStrings{"faq-engine"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestAuthEnabled(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"hi"}`,
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	userToken := "Bearer " + signToken(t, "carol", nil)
	resp = do(t, http.MethodPost, srv.URL+"/api/v1/chat", `{"message":"hi"}`,
		map[string]string{"Authorization": userToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The dev header is ignored once authentication is on.
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/chat/history", "",
		map[string]string{"Authorization": userToken, middleware.UserHeader: "mallory"})
	var history handlers.HistoryResponseDTO
	decode(t, resp, &history)
	require.Len(t, history.Messages, 1)

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/knowledge", "", map[string]string{"Authorization": userToken})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	adminToken := "Bearer " + signToken(t, "root", []string{"admin"})
	resp = do(t, http.MethodGet, srv.URL+"/api/v1/knowledge", "", map[string]string{"Authorization": adminToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
