package health

import "context"

// DBPinger checks memory-store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SearchChecker reports whether the search provider is configured.
type SearchChecker interface {
	Available() bool
}
