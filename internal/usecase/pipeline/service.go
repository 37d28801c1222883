// Package pipeline runs the full retrieval flow for one query: classify, reuse
// or fetch results, score, analyze weak results and assemble the model context.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/cached"
	domfallback "github.com/sou1nonly/relocation-chatbot/internal/domain/fallback"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	"github.com/sou1nonly/relocation-chatbot/internal/logger"
)

// Outcome labels how a run obtained its results.
type Outcome string

// Run outcomes.
const (
	OutcomeCacheHit      Outcome = "cache_hit"
	OutcomeSearched      Outcome = "searched"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeCanceled      Outcome = "canceled"
)

// DefaultSearchLimit is how many results are requested from the provider.
const DefaultSearchLimit = 10

// Request is one pipeline run.
type Request struct {
	Query       string               `json:"query"`
	UserContext *usercontext.Context `json:"user_context,omitempty"`
	Options     assembled.Options    `json:"options"`
	// Threshold filters results by final score; negative selects the scorer default.
	Threshold float64 `json:"threshold"`
	// BypassCache forces a fresh search. The fresh results are still stored.
	BypassCache bool `json:"bypass_cache,omitempty"`
}

// Response is everything a run produced.
type Response struct {
	Query             string                 `json:"query"`
	Intent            domintent.QueryIntent  `json:"intent"`
	Rewritten         *query.RewrittenQuery  `json:"rewritten_query,omitempty"`
	Results           result.FilteredResults `json:"results"`
	CacheMatch        *cached.Match          `json:"cache_match,omitempty"`
	CacheID           string                 `json:"cache_id,omitempty"`
	Fallback          domfallback.Response   `json:"fallback"`
	Context           assembled.Context      `json:"context"`
	Outcome           Outcome                `json:"outcome"`
	SearchUnavailable bool                   `json:"search_unavailable"`
	Memory            *usercontext.Memory    `json:"-"`
	UserContext       usercontext.Context    `json:"-"`
}

// Metrics are optional; nil fields are skipped.
type Metrics struct {
	Runs          *prometheus.CounterVec
	Fallbacks     *prometheus.CounterVec
	ContextTokens prometheus.Observer
}

// Stages bundles the pure pipeline stages.
type Stages struct {
	Classifier Classifier
	Rewriter   Rewriter
	Scorer     Scorer
	Fallback   FallbackAnalyzer
	Assembler  Assembler
}

// Service orchestrates a pipeline run. Safe for concurrent use.
type Service struct {
	stages      Stages
	cache       Cache
	search      SearchProvider
	memory      MemoryStore
	logger      *zap.Logger
	metrics     Metrics
	searchLimit int
	now         func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithMemoryStore enables preference loading and search timestamps.
func WithMemoryStore(m MemoryStore) Option {
	return func(s *Service) { s.memory = m }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSearchLimit overrides DefaultSearchLimit.
func WithSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithClock overrides the time source for search timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a pipeline service.
func New(stages Stages, cache Cache, search SearchProvider, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		stages:      stages,
		cache:       cache,
		search:      search,
		logger:      logger,
		searchLimit: DefaultSearchLimit,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run executes the pipeline. Only provider errors and cancellation are returned
// as errors; every other failure degrades to a safe default.
func (s *Service) Run(ctx context.Context, req Request) (Response, error) {
	log := logger.FromContextOr(ctx, s.logger)

	uc := usercontext.OrEmpty(req.UserContext)
	mem := s.loadMemory(ctx, log, &uc)

	resp := Response{Query: req.Query, Memory: mem, UserContext: uc}
	resp.Intent = s.stages.Classifier.Classify(req.Query, &uc)
	resp.Results = result.Empty()

	switch {
	case resp.Intent.SearchStrategy.Priority == domintent.PrioritySkip || strings.TrimSpace(req.Query) == "":
		resp.Outcome = OutcomeSkipped

	case !req.BypassCache && s.lookup(req.Query, &resp):
		resp.Outcome = OutcomeCacheHit

	default:
		if err := s.fetch(ctx, log, req, &uc, &resp); err != nil {
			s.countRun(resp.Outcome)
			return resp, err
		}
	}

	resp.Fallback = s.stages.Fallback.Analyze(resp.Results, resp.Intent, req.Query)
	if resp.Fallback.ShouldFallback && resp.Fallback.Strategy != nil && s.metrics.Fallbacks != nil {
		s.metrics.Fallbacks.WithLabelValues(string(resp.Fallback.Strategy.Type)).Inc()
	}

	var web *result.FilteredResults
	if len(resp.Results.Results) > 0 {
		web = &resp.Results
	}
	resp.Context = s.stages.Assembler.Assemble(req.Query, resp.Intent, &uc, mem, web, req.Options)
	if s.metrics.ContextTokens != nil {
		s.metrics.ContextTokens.Observe(float64(resp.Context.TotalTokens))
	}

	s.countRun(resp.Outcome)
	log.Debug("pipeline run",
		zap.String("outcome", string(resp.Outcome)),
		zap.String("intent", string(resp.Intent.Primary)),
		zap.Int("results", len(resp.Results.Results)),
		zap.Bool("fallback", resp.Fallback.ShouldFallback),
		zap.Int("context_tokens", resp.Context.TotalTokens),
	)
	return resp, nil
}

func (s *Service) lookup(q string, resp *Response) bool {
	if s.cache == nil {
		return false
	}
	m, ok := s.cache.FindSimilar(q, resp.Intent)
	if !ok {
		return false
	}
	resp.CacheMatch = m
	resp.CacheID = m.Entry.ID
	rw := m.Entry.RewrittenQuery
	resp.Rewritten = &rw
	resp.Results = fromEntry(m.Entry)
	return true
}

func (s *Service) fetch(
	ctx context.Context, log *zap.Logger, req Request, uc *usercontext.Context, resp *Response,
) error {
	rw := s.stages.Rewriter.Rewrite(req.Query, resp.Intent, uc)
	resp.Rewritten = &rw

	raw, err := s.search.Search(ctx, rw.Rewritten, s.searchLimit)
	switch {
	case errors.Is(err, domain.ErrSearchUnavailable):
		log.Warn("search provider unavailable, continuing without web results")
		resp.Outcome = OutcomeUnavailable
		resp.SearchUnavailable = true
		return nil
	case err != nil:
		if ctx.Err() != nil {
			resp.Outcome = OutcomeCanceled
			return fmt.Errorf("search canceled: %w", ctx.Err())
		}
		resp.Outcome = OutcomeProviderError
		return fmt.Errorf("search %q: %w", rw.Rewritten, err)
	}

	filtered := s.stages.Scorer.FilterAndRank(raw, resp.Intent, rw, req.Threshold)
	resp.Results = filtered
	resp.Outcome = OutcomeSearched

	// A caller that went away must not leave partial results behind.
	if ctx.Err() != nil {
		resp.Outcome = OutcomeCanceled
		return fmt.Errorf("search canceled: %w", ctx.Err())
	}

	if s.cache != nil {
		id, err := s.cache.Store(req.Query, resp.Intent, rw, &filtered)
		if err != nil {
			log.Warn("cache store failed", zap.Error(err))
		} else {
			resp.CacheID = id
		}
	}
	s.recordSearch(ctx, log, uc.UserID)
	return nil
}

// loadMemory merges stored preferences into uc. Memory failures are logged and ignored.
func (s *Service) loadMemory(ctx context.Context, log *zap.Logger, uc *usercontext.Context) *usercontext.Memory {
	if s.memory == nil || uc.UserID == "" {
		return nil
	}
	mem, err := s.memory.Memory(ctx, uc.UserID)
	if err != nil {
		log.Warn("load user memory", zap.String("user_id", uc.UserID), zap.Error(err))
		return nil
	}
	*uc = uc.Merge(mem.Preferences)
	if uc.LastSearchAt.IsZero() {
		if at, err := s.memory.LastSearch(ctx, uc.UserID); err == nil {
			uc.LastSearchAt = at
		}
	}
	return &mem
}

func (s *Service) recordSearch(ctx context.Context, log *zap.Logger, userID string) {
	if s.memory == nil || userID == "" {
		return
	}
	if err := s.memory.RecordSearchTimestamp(ctx, userID, s.now()); err != nil {
		log.Warn("record search timestamp", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) countRun(o Outcome) {
	if s.metrics.Runs != nil && o != "" {
		s.metrics.Runs.WithLabelValues(string(o)).Inc()
	}
}

// fromEntry rebuilds the FilteredResults that were stored with a cached entry.
func fromEntry(e cached.Entry) result.FilteredResults {
	f := result.Empty()
	f.Results = append(f.Results, e.Results...)
	f.Summary = e.Summary
	f.Summary.WeakResults = result.Weak(f.Summary.AverageScore, len(f.Results))
	if f.Summary.TopScoreType == "" {
		f.Summary.TopScoreType = result.ScoreRelevance
	}
	f.Suggestions.NeedsRefinement = e.Suggestions.NeedsRefinement
	f.Suggestions.SuggestedQueries = append(f.Suggestions.SuggestedQueries, e.Suggestions.SuggestedQueries...)
	f.Suggestions.MissingContext = append(f.Suggestions.MissingContext, e.Suggestions.MissingContext...)
	return f
}
