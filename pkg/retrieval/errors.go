package retrieval

import "github.com/sou1nonly/relocation-chatbot/internal/domain"

// Errors returned by Engine. Match with errors.Is.
var (
	ErrSearchUnavailable = domain.ErrSearchUnavailable
	ErrSearchProvider    = domain.ErrSearchProvider
	ErrInvalidRequest    = domain.ErrInvalidRequest
)

// ProviderError carries the status of a failed search provider call.
type ProviderError = domain.ProviderError
