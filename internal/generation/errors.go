package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorType classifies a generation failure.
type ErrorType string

const (
	ErrorTypeMissingCredential ErrorType = "missing_credential"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypeAuth              ErrorType = "auth"
	ErrorTypeRateLimited       ErrorType = "rate_limited"
	ErrorTypeServer            ErrorType = "server"
	ErrorTypeBadResponse       ErrorType = "bad_response"
	ErrorTypeEmpty             ErrorType = "empty"
)

// Error is a classified generation failure.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a classified error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

// StatusError classifies a non-2xx HTTP response.
func StatusError(status int, body string) *Error {
	var e *Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = NewError(ErrorTypeAuth, "authentication failed", false, nil)
	case status == http.StatusTooManyRequests:
		e = NewError(ErrorTypeRateLimited, "rate limited", true, nil)
	case status >= 500:
		e = NewError(ErrorTypeServer, "server error", true, nil)
	default:
		e = NewError(ErrorTypeBadResponse, "unexpected status", false, nil)
	}
	e.StatusCode = status
	if body != "" {
		e.Cause = errors.New(truncate(body, 512))
	}
	return e
}

// ClassifyError categorizes err into an *Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, "request timeout", true, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(ErrorTypeTimeout, "request canceled", false, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorTypeTimeout, "request timeout", true, err)
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	var classified *Error
	switch {
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		classified = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case statusCode == 429 || strings.Contains(lower, "rate limit"):
		classified = NewError(ErrorTypeRateLimited, "rate limited", true, err)
	case statusCode >= 500:
		classified = NewError(ErrorTypeServer, "server error", true, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		classified = NewError(ErrorTypeTimeout, "request timeout", true, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		classified = NewError(ErrorTypeTransport, "connection failed", true, err)
	case statusCode > 0:
		classified = NewError(ErrorTypeBadResponse, "unexpected status", false, err)
	default:
		classified = NewError(ErrorTypeTransport, "generation request failed", false, err)
	}
	classified.StatusCode = statusCode
	return classified
}

// GetErrorType extracts the ErrorType from err, or "" when err is not
// classified.
func GetErrorType(err error) ErrorType {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Type
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
