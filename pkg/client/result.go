package client

import (
	"fmt"
	"net/http"

	"github.com/terra-clan/projecthub/internal/models"
)

// Result is the outcome of one API call: either a value or an error
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the call succeeded
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Unwrap returns the value and the error
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// APIError is a failure reported by the proposal service, either through an
// HTTP error status or a success:false envelope
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 responses to models.ErrNotFound
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	return nil
}
