// Package result holds raw provider hits and their scored, filtered form.
package result

import (
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
)

// MaxFiltered caps the ranked sequence in FilteredResults.
const MaxFiltered = 8

// WebSearchResult is a single hit from the search provider.
// Domain, PublishDate and SourceType are optional and filled by enrichment.
type WebSearchResult struct {
	Title       string            `json:"title"`
	Snippet     string            `json:"snippet"`
	Link        string            `json:"link"`
	Rank        int               `json:"rank"`
	Domain      string            `json:"domain,omitempty"`
	PublishDate *time.Time        `json:"publish_date,omitempty"`
	SourceType  intent.SourceType `json:"source_type,omitempty"`
}

// ScoredResult extends a hit with its four axis scores and the weighted final score.
type ScoredResult struct {
	WebSearchResult
	RelevanceScore float64  `json:"relevance_score"`
	SemanticScore  float64  `json:"semantic_score"`
	ContextScore   float64  `json:"context_score"`
	QualityScore   float64  `json:"quality_score"`
	FinalScore     float64  `json:"final_score"`
	Reasoning      []string `json:"reasoning"`
}

// ScoreType names one of the four scoring axes.
type ScoreType string

// Scoring axes.
const (
	ScoreRelevance ScoreType = "relevance"
	ScoreSemantic  ScoreType = "semantic"
	ScoreContext   ScoreType = "context"
	ScoreQuality   ScoreType = "quality"
)

// Weak reports whether a result set is too thin to rely on: an average final
// score below 0.5 or fewer than three results.
func Weak(average float64, n int) bool {
	return average < 0.5 || n < 3
}

// Summary aggregates a filtered result set.
type Summary struct {
	TotalProcessed int       `json:"total_processed"`
	TotalFiltered  int       `json:"total_filtered"`
	AverageScore   float64   `json:"average_score"`
	TopScoreType   ScoreType `json:"top_score_type"`
	WeakResults    bool      `json:"weak_results"`
}

// Suggestions carries query refinement hints for weak result sets.
type Suggestions struct {
	NeedsRefinement  bool     `json:"needs_refinement"`
	SuggestedQueries []string `json:"suggested_queries"`
	MissingContext   []string `json:"missing_context"`
}

// FilteredResults is the ranked (descending final score) output of the scorer.
type FilteredResults struct {
	Results     []ScoredResult `json:"results"`
	Summary     Summary        `json:"summary"`
	Suggestions Suggestions    `json:"suggestions"`
}

// Empty returns a weak, empty result set.
func Empty() FilteredResults {
	return FilteredResults{
		Results: []ScoredResult{},
		Summary: Summary{WeakResults: true, TopScoreType: ScoreRelevance},
		Suggestions: Suggestions{
			SuggestedQueries: []string{},
			MissingContext:   []string{},
		},
	}
}

// TopScore returns the highest final score, or 0 for an empty set.
func (f FilteredResults) TopScore() float64 {
	if len(f.Results) == 0 {
		return 0
	}
	return f.Results[0].FinalScore
}
