package pipeline

import (
	"context"
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/cached"
	domfallback "github.com/sou1nonly/relocation-chatbot/internal/domain/fallback"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
)

// Classifier derives intent from a raw query.
type Classifier interface {
	Classify(q string, uc *usercontext.Context) domintent.QueryIntent
}

// Rewriter turns a query into a search-optimized string.
type Rewriter interface {
	Rewrite(q string, in domintent.QueryIntent, uc *usercontext.Context) query.RewrittenQuery
}

// Scorer filters and ranks raw provider output.
type Scorer interface {
	FilterAndRank(
		raw []result.WebSearchResult, in domintent.QueryIntent, rw query.RewrittenQuery, threshold float64,
	) result.FilteredResults
}

// Cache reuses results of similar past searches.
type Cache interface {
	FindSimilar(q string, in domintent.QueryIntent) (*cached.Match, bool)
	Store(q string, in domintent.QueryIntent, rw query.RewrittenQuery, f *result.FilteredResults) (string, error)
}

// FallbackAnalyzer proposes recovery for weak results.
type FallbackAnalyzer interface {
	Analyze(f result.FilteredResults, in domintent.QueryIntent, q string) domfallback.Response
}

// Assembler packs the final token-budgeted context.
type Assembler interface {
	Assemble(
		q string, in domintent.QueryIntent, uc *usercontext.Context,
		mem *usercontext.Memory, web *result.FilteredResults, opts assembled.Options,
	) assembled.Context
}

// SearchProvider executes a web search.
type SearchProvider interface {
	Search(ctx context.Context, q string, limit int) ([]result.WebSearchResult, error)
}

// MemoryStore is the long-term user memory collaborator.
type MemoryStore interface {
	Memory(ctx context.Context, userID string) (usercontext.Memory, error)
	LastSearch(ctx context.Context, userID string) (time.Time, error)
	RecordSearchTimestamp(ctx context.Context, userID string, at time.Time) error
}
