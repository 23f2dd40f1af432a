// Package engine provides the public Go SDK for the FAQ Engine API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8086"
	userHeader     = "X-User-ID"
)

// Client is the public SDK client for the FAQ Engine.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	// Token is sent as a bearer token when the server has authentication on.
	Token string
	// UserID identifies the caller when the server runs without authentication.
	UserID     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new FAQ Engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		userID:     cfg.UserID,
		httpClient: httpClient,
	}, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("faq-engine: %d %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("faq-engine: %d %s", e.StatusCode, e.Message)
}

// ChatResponse is the assistant's reply to one message.
type ChatResponse struct {
	UserMessage       string `json:"user_message"`
	BotResponse       string `json:"bot_response"`
	RemainingRequests int    `json:"remaining_requests"`
	Stage             string `json:"stage"`
	IsCode            bool   `json:"is_code"`
	Language          string `json:"language,omitempty"`
}

// HistoryEntry is one recorded turn.
type HistoryEntry struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Stage       string    `json:"stage"`
	CreatedAt   time.Time `json:"created_at"`
}

// LimitsResponse reports the daily generation quota.
type LimitsResponse struct {
	RemainingRequests int `json:"remaining_requests"`
	DailyLimit        int `json:"daily_limit"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Chat sends a message. A blank message yields an *APIError with status 400
// whose Message is the assistant's prompt to type something.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", map[string]string{"message": message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to limit recent turns, oldest first. A limit of zero
// uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/v1/chat/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp struct {
		Messages []HistoryEntry `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Limits returns the caller's remaining generation requests.
func (c *Client) Limits(ctx context.Context) (*LimitsResponse, error) {
	var resp LimitsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/limits", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set(userHeader, c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var body struct {
		Error       string `json:"error"`
		Detail      string `json:"detail"`
		BotResponse string `json:"bot_response"`
	}
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Error != "":
			apiErr.Message, apiErr.Detail = body.Error, body.Detail
		case body.BotResponse != "":
			apiErr.Message = body.BotResponse
		}
	}
	return apiErr
}
