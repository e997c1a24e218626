package chat

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the backend answers 2xx without a response text.
var ErrEmptyResponse = errors.New("chat: empty response")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat: backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("chat: backend returned %d: %s", e.StatusCode, e.Body)
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
