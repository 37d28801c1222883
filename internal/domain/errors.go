package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchUnavailable signals that the search provider is not configured (no credentials).
	ErrSearchUnavailable = errors.New("search provider unavailable")
	// ErrSearchProvider signals a transport failure or non-2xx response from the search provider.
	ErrSearchProvider = errors.New("search provider error")
	// ErrLLMProvider signals a language model provider failure.
	ErrLLMProvider = errors.New("llm provider error")
	// ErrInvalidRequest signals malformed input at the API boundary.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBatchTooLarge signals a batch above the configured maximum.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrNotImplemented signals an unconfigured optional feature.
	ErrNotImplemented = errors.New("not implemented")
)

// ProviderError wraps ErrSearchProvider with the upstream HTTP status and message.
// StatusCode is 0 for transport-level failures (DNS, timeout, connection reset).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrSearchProvider.Error(), e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrSearchProvider.Error(), e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrSearchProvider }

// NewProviderError creates a search provider error.
func NewProviderError(status int, message string) error {
	return &ProviderError{StatusCode: status, Message: message}
}
