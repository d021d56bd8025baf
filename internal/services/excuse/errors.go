package excuse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrEmptyExcuse is returned when a generator answers with blank text
	ErrEmptyExcuse = errors.New("empty excuse")
	// ErrNoChoices is returned when the completion has no choices
	ErrNoChoices = errors.New("no choices in response")
	// ErrRateLimited indicates the upstream API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a non-2xx answer from a remote generator
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("excuse API error (status %d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrRateLimited) match 429 answers
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// classify converts SDK errors into *APIError when a status code is known
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		return &APIError{StatusCode: sdkErr.StatusCode, Message: sdkErr.Message}
	}
	return err
}

// Reason returns a short label for logging a generator failure
func Reason(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, ErrEmptyExcuse), errors.Is(err, ErrNoChoices):
		return "empty_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "request_failed"
	}
}
