// Package cached describes entries owned by the similarity cache.
package cached

import (
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
)

// Entry limits.
const (
	MaxResults        = 10
	MaxSimilarQueries = 5
)

// MatchType describes how a lookup matched a cached entry.
type MatchType string

// Match types.
const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
	MatchTopical  MatchType = "topical"
)

// Metadata records when an entry was stored and what it holds.
type Metadata struct {
	Timestamp    time.Time `json:"timestamp"`
	ExpiresAt    time.Time `json:"expires_at"`
	ResultCount  int       `json:"result_count"`
	AverageScore float64   `json:"average_score"`
}

// Usage is mutated on every cache hit.
type Usage struct {
	AccessCount    int       `json:"access_count"`
	LastAccessed   time.Time `json:"last_accessed"`
	SimilarQueries []string  `json:"similar_queries"`
}

// Entry is a cached (query, intent, results) tuple with its fingerprints.
type Entry struct {
	ID               string                `json:"id"`
	OriginalQuery    string                `json:"original_query"`
	RewrittenQuery   query.RewrittenQuery  `json:"rewritten_query"`
	Intent           intent.QueryIntent    `json:"intent"`
	Results          []result.ScoredResult `json:"results"`
	Metadata         Metadata              `json:"metadata"`
	Usage            Usage                 `json:"usage"`
	// Summary and Suggestions are the scorer's view of Results at store time.
	Summary          result.Summary        `json:"summary"`
	Suggestions      result.Suggestions    `json:"suggestions"`
	QueryFingerprint []float64             `json:"-"`
	TopicFingerprint []float64             `json:"-"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.Metadata.ExpiresAt)
}

// Match is a successful similarity lookup.
type Match struct {
	Entry      Entry     `json:"entry"`
	Similarity float64   `json:"similarity"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"match_type"`
}
