// Package generation adapts external text generation services. Failures are
// returned as values inside a Result and never raised.
package generation

import (
	"context"
	"strings"
	"time"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 8 * time.Second

// Client generates text for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) Result
}

// Result is either generated text or a classified failure.
type Result struct {
	Text string
	Err  *Error
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil && r.Text != ""
}

// Success wraps generated text. Blank text becomes an empty-result failure.
func Success(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Failure(NewError(ErrorTypeEmpty, "empty completion", false, nil))
	}
	return Result{Text: text}
}

// Failure wraps a classified error.
func Failure(err *Error) Result {
	return Result{Err: err}
}

// Config selects and configures a provider.
type Config struct {
	Provider string // gemini, openai or disabled
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the configured provider. A missing credential or the disabled
// provider yields a client that always reports missing_credential.
func New(cfg Config) Client {
	if cfg.Provider == "disabled" || cfg.APIKey == "" {
		return Disabled{}
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	default:
		return NewGeminiClient(cfg)
	}
}

// Disabled is the provider used when no credential is configured.
type Disabled struct{}

// Generate always fails with missing_credential.
func (Disabled) Generate(ctx context.Context, prompt string) Result {
	return Failure(NewError(ErrorTypeMissingCredential, "generation service not configured", false, nil))
}

// Func adapts a function into a Client.
type Func func(ctx context.Context, prompt string) Result

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) Result {
	return f(ctx, prompt)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
