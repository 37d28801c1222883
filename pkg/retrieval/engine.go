package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/repository/searchcache"
	"github.com/sou1nonly/relocation-chatbot/internal/transport/searchapi"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/assemble"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/fallback"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/pipeline"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/rewrite"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/scoring"
)

// Engine is the retrieval entry point.
type Engine struct {
	classifier *intent.Classifier
	rewriter   *rewrite.Rewriter
	scorer     *scoring.Scorer
	cache      *searchcache.Cache
	analyzer   *fallback.Analyzer
	assembler  *assemble.Assembler
	pipeline   *pipeline.Service
	logger     *zap.Logger
}

// New creates an Engine with its own empty cache.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	cacheCfg := searchcache.DefaultConfig()
	if cfg.cache != nil {
		if cfg.cache.SimilarityThreshold < 0 || cfg.cache.SimilarityThreshold > 1 {
			return nil, fmt.Errorf("retrieval: similarity threshold must be in (0, 1], got %v",
				cfg.cache.SimilarityThreshold)
		}
		cacheCfg = searchcache.Config{
			MaxSize:             cfg.cache.MaxSize,
			SimilarityThreshold: cfg.cache.SimilarityThreshold,
			DefaultTTL:          cfg.cache.DefaultTTL,
			PurgeOnAccess:       cfg.cache.PurgeOnAccess,
		}
	}

	var cacheOpts []searchcache.Option
	var classOpts []intent.Option
	var rewriteOpts []rewrite.Option
	var scoreOpts []scoring.Option
	var pipeOpts []pipeline.Option
	if cfg.fp != nil {
		cacheOpts = append(cacheOpts, searchcache.WithFingerprinter(cfg.fp))
	}
	if cfg.now != nil {
		cacheOpts = append(cacheOpts, searchcache.WithClock(cfg.now))
		classOpts = append(classOpts, intent.WithClock(cfg.now))
		rewriteOpts = append(rewriteOpts, rewrite.WithClock(cfg.now))
		scoreOpts = append(scoreOpts, scoring.WithClock(cfg.now))
		pipeOpts = append(pipeOpts, pipeline.WithClock(cfg.now))
	}
	if cfg.memory != nil {
		pipeOpts = append(pipeOpts, pipeline.WithMemoryStore(cfg.memory))
	}
	if cfg.searchLimit > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithSearchLimit(cfg.searchLimit))
	}

	search := cfg.search
	if search == nil {
		search = searchapi.New(searchapi.Config{APIKey: cfg.apiKey, Logger: cfg.logger})
	}

	e := &Engine{
		classifier: intent.New(classOpts...),
		rewriter:   rewrite.New(rewriteOpts...),
		scorer:     scoring.New(scoreOpts...),
		cache:      searchcache.New(cacheCfg, cfg.logger, cacheOpts...),
		analyzer:   fallback.New(fallback.DefaultConfig()),
		assembler:  assemble.New(assemble.DefaultConfig()),
		logger:     cfg.logger,
	}
	e.pipeline = pipeline.New(pipeline.Stages{
		Classifier: e.classifier,
		Rewriter:   e.rewriter,
		Scorer:     e.scorer,
		Fallback:   e.analyzer,
		Assembler:  e.assembler,
	}, e.cache, search, cfg.logger, pipeOpts...)

	return e, nil
}

// ClassifyIntent derives the intent and web-search need of a query.
func (e *Engine) ClassifyIntent(q string, uc *UserContext) QueryIntent {
	return e.classifier.Classify(q, uc)
}

// RewriteQuery turns a query into a search-optimized string.
func (e *Engine) RewriteQuery(q string, in QueryIntent, uc *UserContext) RewrittenQuery {
	return e.rewriter.Rewrite(q, in, uc)
}

// FilterAndRankResults scores raw provider results and keeps those whose final
// score reaches threshold. A negative threshold selects the default of 0.3.
func (e *Engine) FilterAndRankResults(
	raw []WebSearchResult, in QueryIntent, rw RewrittenQuery, threshold float64,
) FilteredResults {
	return e.scorer.FilterAndRank(raw, in, rw, threshold)
}

// FindSimilarSearch returns a cached search similar enough to q.
func (e *Engine) FindSimilarSearch(q string, in QueryIntent) (*CachedMatch, bool) {
	return e.cache.FindSimilar(q, in)
}

// StoreSearchResults caches filtered results and returns the entry id.
func (e *Engine) StoreSearchResults(q string, in QueryIntent, rw RewrittenQuery, f *FilteredResults) (string, error) {
	id, err := e.cache.Store(q, in, rw, f)
	if err != nil {
		return "", fmt.Errorf("retrieval: store: %w", err)
	}
	return id, nil
}

// AnalyzeFallbackNeeds decides whether results are too weak and proposes a recovery.
func (e *Engine) AnalyzeFallbackNeeds(f FilteredResults, in QueryIntent, q string) FallbackResponse {
	return e.analyzer.Analyze(f, in, q)
}

// AssembleContext packs user profile, memory, web results and conversation
// into a token-budgeted context.
func (e *Engine) AssembleContext(
	q string, in QueryIntent, uc *UserContext, mem *Memory, web *FilteredResults, opts AssemblyOptions,
) AssembledContext {
	return e.assembler.Assemble(q, in, uc, mem, web, opts)
}

// Run executes the full pipeline for one query. Only search provider failures
// and cancellation are returned as errors.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	resp, err := e.pipeline.Run(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("retrieval: run: %w", err)
	}
	return resp, nil
}

// CacheStats returns a snapshot of the search cache.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// ClearCache drops every cached search.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Close releases the engine's cache. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.cache.Clear()
	_ = e.logger.Sync()
}
