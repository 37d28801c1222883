package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SearchProvider executes a web search. Return ErrSearchUnavailable when not
// configured and a *ProviderError for upstream failures.
type SearchProvider interface {
	Search(ctx context.Context, q string, limit int) ([]WebSearchResult, error)
}

// MemoryStore supplies long-term user memory to Run.
type MemoryStore interface {
	Memory(ctx context.Context, userID string) (Memory, error)
	LastSearch(ctx context.Context, userID string) (time.Time, error)
	RecordSearchTimestamp(ctx context.Context, userID string, at time.Time) error
}

// CacheConfig bounds the engine's search cache. Zero values select defaults:
// 500 entries, threshold 0.75 and a two-hour TTL.
type CacheConfig struct {
	MaxSize             int
	SimilarityThreshold float64
	DefaultTTL          time.Duration
	PurgeOnAccess       bool
}

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	search      SearchProvider
	apiKey      string
	memory      MemoryStore
	logger      *zap.Logger
	cache       *CacheConfig
	fp          Fingerprinter
	now         func() time.Time
	searchLimit int
}

// WithSearchProvider sets the web search backend. Without one, Run degrades
// to answers without web results.
func WithSearchProvider(p SearchProvider) Option {
	return optionFunc(func(c *engineConfig) {
		c.search = p
	})
}

// WithSearchAPI uses the built-in Serper-compatible client with the given key.
// An empty key leaves search unavailable.
func WithSearchAPI(apiKey string) Option {
	return optionFunc(func(c *engineConfig) {
		c.apiKey = apiKey
	})
}

// WithMemoryStore enables stored preferences and search timestamps in Run.
func WithMemoryStore(m MemoryStore) Option {
	return optionFunc(func(c *engineConfig) {
		c.memory = m
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithCacheConfig overrides the search cache bounds.
func WithCacheConfig(cfg CacheConfig) Option {
	return optionFunc(func(c *engineConfig) {
		c.cache = &cfg
	})
}

// WithFingerprinter replaces the hashing fingerprinter used for cache similarity.
func WithFingerprinter(fp Fingerprinter) Option {
	return optionFunc(func(c *engineConfig) {
		c.fp = fp
	})
}

// WithClock sets the time source for every stage. Intended for tests.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *engineConfig) {
		c.now = now
	})
}

// WithSearchLimit sets how many results Run requests from the provider. Default: 10.
func WithSearchLimit(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.searchLimit = n
	})
}
