package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	assert.True(t, Success("hi").OK())

	empty := Success("  \n")
	assert.False(t, empty.OK())
	require.NotNil(t, empty.Err)
	assert.Equal(t, ErrorTypeEmpty, empty.Err.Type)

	assert.False(t, Failure(NewError(ErrorTypeServer, "x", true, nil)).OK())
}

func TestNew_SelectsProvider(t *testing.T) {
	assert.IsType(t, Disabled{}, New(Config{Provider: "gemini"}))
	assert.IsType(t, Disabled{}, New(Config{Provider: "disabled", APIKey: "k"}))
	assert.IsType(t, &GeminiClient{}, New(Config{Provider: "gemini", APIKey: "k"}))
	assert.IsType(t, &OpenAIClient{}, New(Config{Provider: "openai", APIKey: "k"}))
}

func TestDisabled(t *testing.T) {
	res := Disabled{}.Generate(context.Background(), "hello")
	assert.False(t, res.OK())
	assert.Equal(t, ErrorTypeMissingCredential, res.Err.Type)
}

func TestGeminiClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req GeminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the prompt", req.Contents[0].Parts[0].Text)

		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Django is a web framework."}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	res := c.Generate(context.Background(), "the prompt")
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "Django is a web framework.", res.Text)
}

func TestGeminiClient_JoinsParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Django is "},{"text":"a web framework."}]}}]}`)
	}))
	defer srv.Close()

	res := NewGeminiClient(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "p")
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "Django is a web framework.", res.Text)
}

func TestGeminiClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"bad key"}}`, ErrorTypeAuth},
		{"forbidden", http.StatusForbidden, `denied`, ErrorTypeAuth},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrorTypeRateLimited},
		{"server", http.StatusServiceUnavailable, `oops`, ErrorTypeServer},
		{"bad request", http.StatusBadRequest, `nope`, ErrorTypeBadResponse},
		{"malformed json", http.StatusOK, `{`, ErrorTypeBadResponse},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrorTypeEmpty},
		{"blank text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, ErrorTypeEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			res := NewGeminiClient(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "p")
			require.False(t, res.OK())
			assert.Equal(t, tt.want, res.Err.Type)
		})
	}
}

func TestGeminiClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewGeminiClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	res := c.Generate(context.Background(), "p")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.False(t, res.OK())
	assert.Equal(t, ErrorTypeTimeout, res.Err.Type)
}

func TestGeminiClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewGeminiClient(Config{APIKey: "k", BaseURL: url}).Generate(context.Background(), "p")
	require.False(t, res.OK())
	assert.Equal(t, ErrorTypeTransport, res.Err.Type)
}

func TestOpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "local-model", body["model"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "local-model"})
	res := c.Generate(context.Background(), "hello")
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "Hi there", res.Text)
}

func TestOpenAIClient_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	res := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "p")
	require.False(t, res.OK())
	assert.Equal(t, ErrorTypeRateLimited, res.Err.Type)
	assert.Equal(t, http.StatusTooManyRequests, res.Err.StatusCode)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{context.DeadlineExceeded, ErrorTypeTimeout},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{errors.New("status 401 unauthorized"), ErrorTypeAuth},
		{errors.New("429 too many requests"), ErrorTypeRateLimited},
		{errors.New("upstream returned 502"), ErrorTypeServer},
		{errors.New("dial tcp: connection refused"), ErrorTypeTransport},
		{errors.New("status 404"), ErrorTypeBadResponse},
		{errors.New("something odd"), ErrorTypeTransport},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err).Type)
		})
	}

	assert.Nil(t, ClassifyError(nil))

	orig := NewError(ErrorTypeAuth, "x", false, nil)
	assert.Same(t, orig, ClassifyError(fmt.Errorf("ctx: %w", orig)))
}

func TestError_Format(t *testing.T) {
	e := StatusError(503, "overloaded")
	assert.Equal(t, "server HTTP 503 server error: overloaded", e.Error())
	assert.True(t, e.Retryable)
	assert.Equal(t, ErrorTypeServer, GetErrorType(fmt.Errorf("x: %w", e)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))

	long := StatusError(500, strings.Repeat("x", 600))
	assert.True(t, strings.HasSuffix(long.Cause.Error(), "..."))
}

func TestFunc(t *testing.T) {
	var c Client = Func(func(ctx context.Context, prompt string) Result { return Success(prompt) })
	assert.Equal(t, "echo", c.Generate(context.Background(), "echo").Text)
}
