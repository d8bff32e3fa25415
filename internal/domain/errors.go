package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput is returned when a caller passes a missing or malformed key.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an absent document or record.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited marks a transient upstream throttle (HTTP 429/503).
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted marks a periodic quota cap that retrying cannot clear.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrUnknownProvider is returned for a provider name with no orchestrator.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrSyncInProgress is returned when another run holds the provider lock.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// APIError carries the status code and raw body of a failed upstream call.
type APIError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

// NewAPIError creates an APIError.
func NewAPIError(provider string, status int, body []byte) *APIError {
	return &APIError{Provider: provider, StatusCode: status, Body: body}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// Is lets errors.Is(err, ErrRateLimited) match throttling responses.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// AsAPIError unwraps err to an *APIError if possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
