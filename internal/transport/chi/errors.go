package chi

import (
	"errors"
	"net/http"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
)

// ErrorCode is the machine-readable error identifier in ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeNotFound            ErrorCode = "not_found"
	CodeBatchTooLarge       ErrorCode = "batch_too_large"
	CodeSearchUnavailable   ErrorCode = "search_unavailable"
	CodeSearchProviderError ErrorCode = "search_provider_error"
	CodeLLMProviderError    ErrorCode = "llm_provider_error"
	CodeNotImplemented      ErrorCode = "not_implemented"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var sentinels = []error{
	domain.ErrInvalidRequest,
	domain.ErrNotFound,
	domain.ErrBatchTooLarge,
	domain.ErrSearchUnavailable,
	domain.ErrSearchProvider,
	domain.ErrLLMProvider,
	domain.ErrNotImplemented,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, CodeBatchTooLarge),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, CodeSearchUnavailable),
		providerErrorHandler,
		sentinelHandler(domain.ErrLLMProvider, http.StatusBadGateway, CodeLLMProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// providerErrorHandler maps search provider failures to 502 and exposes the upstream status.
func providerErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSearchProvider) {
		return false
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"code":            CodeSearchProviderError,
			"message":         msg,
			"upstream_status": pe.StatusCode,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, CodeSearchProviderError, msg)
	return true
}

// batchErrorCode maps a per-item batch failure to its error code.
func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeBadRequest
	case errors.Is(err, domain.ErrBatchTooLarge):
		return CodeBatchTooLarge
	case errors.Is(err, domain.ErrSearchUnavailable):
		return CodeSearchUnavailable
	case errors.Is(err, domain.ErrSearchProvider):
		return CodeSearchProviderError
	default:
		return CodeInternalError
	}
}
