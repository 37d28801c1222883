// Package fallback describes recovery advice for weak search results.
package fallback

// StrategyType is the recovery approach.
type StrategyType string

// Recovery strategies.
const (
	Refine            StrategyType = "refine"
	Broaden           StrategyType = "broaden"
	Redirect          StrategyType = "redirect"
	Clarify           StrategyType = "clarify"
	AlternativeSource StrategyType = "alternative_source"
)

// Strategy is a concrete recovery proposal. Optional lists are empty, never nil.
type Strategy struct {
	Type                StrategyType `json:"type"`
	Confidence          float64      `json:"confidence"`
	Reasoning           string       `json:"reasoning"`
	SuggestedActions    []string     `json:"suggested_actions"`
	AlternativeQueries  []string     `json:"alternative_queries,omitempty"`
	ClarifyingQuestions []string     `json:"clarifying_questions,omitempty"`
	RecommendedSources  []string     `json:"recommended_sources,omitempty"`
}

// Response is advisory output; it is never a fatal error.
// Strategy is nil when ShouldFallback is false.
type Response struct {
	ShouldFallback bool      `json:"should_fallback"`
	Strategy       *Strategy `json:"strategy,omitempty"`
	Message        string    `json:"message"`
	Guidance       []string  `json:"guidance"`
	NextSteps      []string  `json:"next_steps"`
}
