package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the public Gemini REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient calls the Gemini generateContent REST API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
}

// NewGeminiClient creates a Gemini client, applying defaults for empty
// settings.
func NewGeminiClient(cfg Config) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &GeminiClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
	}
}

// GeminiPart is one text fragment of a message.
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiContent is a message made of parts.
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

// GeminiRequest is the generateContent request body.
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

// GeminiCandidate is one generated alternative.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiResponse is the generateContent response body.
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
	Error      *GeminiError      `json:"error,omitempty"`
}

// GeminiError is the error object returned on failure.
type GeminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate sends prompt as a single user message and returns the text of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) Result {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := GeminiRequest{
		Contents: []GeminiContent{{Parts: []GeminiPart{{Text: prompt}}}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Failure(NewError(ErrorTypeBadResponse, "marshal request", false, err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return Failure(NewError(ErrorTypeTransport, "create request", false, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failure(ClassifyError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(ClassifyError(fmt.Errorf("read response: %w", err)))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp GeminiResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return Failure(StatusError(resp.StatusCode, errResp.Error.Message))
		}
		return Failure(StatusError(resp.StatusCode, string(body)))
	}

	var genResp GeminiResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return Failure(NewError(ErrorTypeBadResponse, "unmarshal response", false, err))
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return Failure(NewError(ErrorTypeEmpty, "no candidates in response", false, nil))
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return Success(text.String())
}
