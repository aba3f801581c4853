package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrStreamTimeout is returned when the upstream sent no data for longer
	// than the session's idle window.
	ErrStreamTimeout = errors.New("stream idle timeout")

	// ErrStreamClosed is returned by Next after the caller closed the stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrMalformedFrame is returned by decoders for frames that are not valid
	// JSON or match no known shape. Sessions drop such frames.
	ErrMalformedFrame = errors.New("malformed stream frame")

	// ErrUnknownProvider is returned when no decoder exists for a provider
	// identity.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ConnectionError is returned when the request could not be sent or the
// connection dropped before a status line was received.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("llm: connecting to %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProviderError is returned when the provider responds with a non-success
// HTTP status, or reports an error in-band.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the provider-specific error type string
	// (e.g., "invalid_request_error", "rate_limit_error").
	Type string

	// Message is the human-readable error description.
	Message string

	// Body is the raw (truncated) response body.
	Body string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true if the error is a rate limit response (HTTP 429).
func (e *ProviderError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// ReadProviderError builds a ProviderError from a non-success response. It
// understands the {"error":{"type":"...","message":"..."}} body used by
// Anthropic, OpenAI and compatible APIs, Gemini's {"error":{"status",...}}
// and Ollama's {"error":"..."}. The body is not closed.
func ReadProviderError(resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	perr := &ProviderError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Message:    string(body),
	}

	var nested struct {
		Error struct {
			Type    string `json:"type"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		perr.Type = nested.Error.Type
		if perr.Type == "" {
			perr.Type = nested.Error.Status
		}
		perr.Message = nested.Error.Message
		return perr
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		perr.Message = flat.Error
		return perr
	}

	if perr.Message == "" {
		perr.Message = http.StatusText(resp.StatusCode)
	}
	return perr
}
