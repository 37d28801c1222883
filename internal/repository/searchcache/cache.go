// Package searchcache keeps filtered search results keyed by query fingerprints
// and serves them back to semantically equivalent queries.
package searchcache

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/cached"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

// exactConfidence is returned for normalized-equal queries.
const exactConfidence = 0.95

// Config bounds the cache.
type Config struct {
	MaxSize             int
	SimilarityThreshold float64
	DefaultTTL          time.Duration
	PurgeOnAccess       bool
}

// DefaultConfig returns capacity 500, threshold 0.75 and a two-hour default TTL.
func DefaultConfig() Config {
	return Config{
		MaxSize:             500,
		SimilarityThreshold: 0.75,
		DefaultTTL:          120 * time.Minute,
		PurgeOnAccess:       true,
	}
}

// Metrics are optional; nil fields are skipped.
type Metrics struct {
	Lookups   *prometheus.CounterVec // label "result": hit | miss
	Evictions prometheus.Counter
	Entries   prometheus.Gauge
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries   int     `json:"entries"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Expired   uint64  `json:"expired"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is safe for concurrent use. A single mutex guards the entry map and
// counters; fingerprints are computed before the lock is taken and nothing
// inside the critical section performs I/O.
type Cache struct {
	cfg     Config
	fp      domain.Fingerprinter
	now     func() time.Time
	newID   func() string
	metrics Metrics
	logger  *zap.Logger

	mu        sync.Mutex
	entries   map[string]*cached.Entry
	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithFingerprinter replaces the hashing fingerprinter, e.g. with a real embedding model.
func WithFingerprinter(fp domain.Fingerprinter) Option {
	return func(c *Cache) { c.fp = fp }
}

// WithClock sets the time source for TTL, age and recency.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithIDGenerator overrides uuid-based entry ids.
func WithIDGenerator(gen func() string) Option {
	return func(c *Cache) { c.newID = gen }
}

// New creates an empty cache. Zero config values fall back to DefaultConfig.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Cache {
	def := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		cfg:     cfg,
		fp:      domain.NewHashFingerprinter(domain.DefaultFingerprintDimensions),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger,
		entries: make(map[string]*cached.Entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FindSimilar returns the best live entry whose confidence clears the threshold.
// A hit updates the entry's usage statistics.
func (c *Cache) FindSimilar(q string, in intent.QueryIntent) (*cached.Match, bool) {
	probe := c.newProbe(q, in)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.PurgeOnAccess {
		c.purgeLocked(now)
	}

	var (
		best     *cached.Entry
		bestConf float64
		bestSim  float64
		bestType cached.MatchType
	)
	for _, e := range c.entries {
		if e.Expired(now) {
			continue
		}
		sim, mt := similarity(probe, e)
		conf := exactConfidence
		if mt != cached.MatchExact {
			conf = adjust(sim, e, now)
		}
		if best == nil || outranks(mt, conf, e, bestType, bestConf, best) {
			best, bestConf, bestSim, bestType = e, conf, sim, mt
		}
	}

	if best == nil || bestConf < c.cfg.SimilarityThreshold {
		c.misses++
		c.observeLookup("miss")
		return nil, false
	}

	c.hits++
	c.observeLookup("hit")
	best.Usage.AccessCount++
	best.Usage.LastAccessed = now
	if bestType != cached.MatchExact {
		best.Usage.SimilarQueries = appendBounded(best.Usage.SimilarQueries, q)
	}
	c.logger.Debug("search cache hit",
		zap.String("id", best.ID),
		zap.String("match_type", string(bestType)),
		zap.Float64("confidence", bestConf),
	)
	return &cached.Match{
		Entry:      cloneEntry(best),
		Similarity: bestSim,
		Confidence: bestConf,
		MatchType:  bestType,
	}, true
}

// outranks orders candidates: an exact match beats any similarity match, then
// higher confidence, then the newer entry.
func outranks(mt cached.MatchType, conf float64, e *cached.Entry,
	bestType cached.MatchType, bestConf float64, best *cached.Entry,
) bool {
	if exact, bestExact := mt == cached.MatchExact, bestType == cached.MatchExact; exact != bestExact {
		return exact
	}
	if conf != bestConf {
		return conf > bestConf
	}
	return preferNewer(e, best)
}

// Store inserts filtered results and returns the new entry id.
// Only complete result sets may be stored; nil is rejected.
func (c *Cache) Store(
	q string, in intent.QueryIntent, rw query.RewrittenQuery, filtered *result.FilteredResults,
) (string, error) {
	if filtered == nil {
		return "", fmt.Errorf("%w: nil filtered results", domain.ErrInvalidRequest)
	}
	now := c.now()
	results := dedupeByLink(filtered.Results)
	avg := averageScore(results)
	summary := filtered.Summary
	if summary.TotalFiltered != len(results) {
		summary.TotalFiltered = len(results)
		summary.AverageScore = avg
	}
	summary.WeakResults = result.Weak(summary.AverageScore, len(results))
	if summary.TotalProcessed < len(results) {
		summary.TotalProcessed = len(results)
	}
	if summary.TopScoreType == "" {
		summary.TopScoreType = result.ScoreRelevance
	}
	entry := &cached.Entry{
		ID:             c.newID(),
		OriginalQuery:  q,
		RewrittenQuery: rw,
		Intent:         in,
		Results:        results,
		Metadata: cached.Metadata{
			Timestamp:    now,
			ExpiresAt:    now.Add(c.TTLFor(in)),
			ResultCount:  len(results),
			AverageScore: avg,
		},
		Summary:     summary,
		Suggestions: cloneSuggestions(filtered.Suggestions),
		Usage: cached.Usage{
			LastAccessed:   now,
			SimilarQueries: []string{},
		},
		QueryFingerprint: c.fp.Fingerprint(q),
		TopicFingerprint: c.fp.Fingerprint(topicText(in)),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.cfg.MaxSize {
		c.purgeLocked(now)
	}
	if len(c.entries) >= c.cfg.MaxSize {
		c.evictLocked(now)
	}
	c.entries[entry.ID] = entry
	c.setEntriesGauge()

	c.logger.Debug("search cache store",
		zap.String("id", entry.ID),
		zap.Int("results", len(results)),
		zap.Time("expires_at", entry.Metadata.ExpiresAt),
	)
	return entry.ID, nil
}

// TTLFor derives the entry lifetime from the intent's temporal sensitivity.
func (c *Cache) TTLFor(in intent.QueryIntent) time.Duration {
	switch {
	case in.Confidence.TemporalRelevance > 0.8:
		return 30 * time.Minute
	case in.Confidence.TemporalRelevance > 0.6:
		return 60 * time.Minute
	case in.SearchStrategy.Priority == intent.PriorityHigh:
		return 90 * time.Minute
	default:
		return c.cfg.DefaultTTL
	}
}

// Get returns a copy of the entry with id.
func (c *Cache) Get(id string) (cached.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return cached.Entry{}, false
	}
	return cloneEntry(e), true
}

// Purge drops expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cached.Entry)
	c.setEntriesGauge()
}

// Len returns the number of stored entries, expired ones included until purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Entries:   len(c.entries),
		Capacity:  c.cfg.MaxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache) purgeLocked(now time.Time) int {
	n := 0
	for id, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, id)
			n++
		}
	}
	if n > 0 {
		c.expired += uint64(n)
		c.setEntriesGauge()
	}
	return n
}

// evictLocked removes the least useful entries until the cache is below 80% of capacity.
func (c *Cache) evictLocked(now time.Time) {
	// largest size strictly below 80% of capacity
	target := (8*c.cfg.MaxSize - 1) / 10
	ranked := make([]*cached.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		ui, uj := usefulness(ranked[i], now), usefulness(ranked[j], now)
		if ui != uj {
			return ui < uj
		}
		if !ranked[i].Metadata.Timestamp.Equal(ranked[j].Metadata.Timestamp) {
			return ranked[i].Metadata.Timestamp.Before(ranked[j].Metadata.Timestamp)
		}
		return ranked[i].ID < ranked[j].ID
	})

	removed := 0
	for _, e := range ranked {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, e.ID)
		removed++
	}
	c.evictions += uint64(removed)
	if c.metrics.Evictions != nil {
		c.metrics.Evictions.Add(float64(removed))
	}
	c.logger.Info("search cache eviction",
		zap.Int("removed", removed),
		zap.Int("remaining", len(c.entries)),
	)
}

// usefulness = 0.4*accessCount + 0.3*recencyDecay + 0.3*averageScore,
// with recency halving every week since the entry was last accessed.
func usefulness(e *cached.Entry, now time.Time) float64 {
	age := now.Sub(e.Usage.LastAccessed)
	if age < 0 {
		age = 0
	}
	decay := math.Exp(-math.Ln2 * age.Hours() / (7 * 24))
	return 0.4*float64(e.Usage.AccessCount) + 0.3*decay + 0.3*e.Metadata.AverageScore
}

func (c *Cache) observeLookup(res string) {
	if c.metrics.Lookups != nil {
		c.metrics.Lookups.WithLabelValues(res).Inc()
	}
}

func (c *Cache) setEntriesGauge() {
	if c.metrics.Entries != nil {
		c.metrics.Entries.Set(float64(len(c.entries)))
	}
}

func preferNewer(a, b *cached.Entry) bool {
	if !a.Metadata.Timestamp.Equal(b.Metadata.Timestamp) {
		return a.Metadata.Timestamp.After(b.Metadata.Timestamp)
	}
	return a.ID < b.ID
}

func appendBounded(list []string, q string) []string {
	for _, existing := range list {
		if existing == q {
			return list
		}
	}
	list = append(list, q)
	if len(list) > cached.MaxSimilarQueries {
		list = append([]string(nil), list[len(list)-cached.MaxSimilarQueries:]...)
	}
	return list
}

// dedupeByLink keeps the highest-scoring result per link, ordered by score, capped.
func dedupeByLink(in []result.ScoredResult) []result.ScoredResult {
	best := make(map[string]int, len(in))
	out := make([]result.ScoredResult, 0, len(in))
	for _, r := range in {
		if i, ok := best[r.Link]; ok {
			if r.FinalScore > out[i].FinalScore {
				out[i] = r
			}
			continue
		}
		best[r.Link] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	if len(out) > cached.MaxResults {
		out = out[:cached.MaxResults]
	}
	return out
}

func averageScore(rs []result.ScoredResult) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.FinalScore
	}
	return sum / float64(len(rs))
}

func cloneEntry(e *cached.Entry) cached.Entry {
	cp := *e
	cp.Results = append([]result.ScoredResult(nil), e.Results...)
	cp.Usage.SimilarQueries = append([]string{}, e.Usage.SimilarQueries...)
	cp.QueryFingerprint = append([]float64(nil), e.QueryFingerprint...)
	cp.TopicFingerprint = append([]float64(nil), e.TopicFingerprint...)
	cp.Suggestions = cloneSuggestions(e.Suggestions)
	return cp
}

func cloneSuggestions(s result.Suggestions) result.Suggestions {
	return result.Suggestions{
		NeedsRefinement:  s.NeedsRefinement,
		SuggestedQueries: append([]string{}, s.SuggestedQueries...),
		MissingContext:   append([]string{}, s.MissingContext...),
	}
}

// topicText is the text fingerprinted for topical similarity.
func topicText(in intent.QueryIntent) string {
	parts := append(append([]string(nil), in.Entities.Topics...), in.Entities.Locations...)
	return text.Normalize(strings.Join(parts, " "))
}
