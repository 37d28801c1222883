package retrieval

import (
	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/cached"
	domfallback "github.com/sou1nonly/relocation-chatbot/internal/domain/fallback"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	"github.com/sou1nonly/relocation-chatbot/internal/repository/searchcache"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
)

// Pipeline data types.
type (
	QueryIntent         = domintent.QueryIntent
	UserContext         = usercontext.Context
	Preferences         = usercontext.Preferences
	ConversationSummary = usercontext.ConversationSummary
	Memory              = usercontext.Memory
	RewrittenQuery      = query.RewrittenQuery
	WebSearchResult     = result.WebSearchResult
	FilteredResults     = result.FilteredResults
	CachedMatch         = cached.Match
	FallbackResponse    = domfallback.Response
	AssembledContext    = assembled.Context
	AssemblyOptions     = assembled.Options
	CompressionLevel    = assembled.CompressionLevel
	CacheStats          = searchcache.Stats
	Request             = pipeline.Request
	Response            = pipeline.Response
	Outcome             = pipeline.Outcome
	Fingerprinter       = domain.Fingerprinter
)

// Compression levels.
const (
	CompressionNone       = assembled.CompressionNone
	CompressionLight      = assembled.CompressionLight
	CompressionModerate   = assembled.CompressionModerate
	CompressionAggressive = assembled.CompressionAggressive
)

// DefaultAssemblyOptions returns a 4000-token, light-compression configuration with web results.
func DefaultAssemblyOptions() AssemblyOptions { return assembled.DefaultOptions() }

// NewHashFingerprinter returns the built-in hashing fingerprinter with dims dimensions.
func NewHashFingerprinter(dims int) Fingerprinter { return domain.NewHashFingerprinter(dims) }
