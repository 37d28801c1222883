// Package intent describes the structured result of query classification.
package intent

// Primary is the dominant purpose of a user query.
type Primary string

// Primary intent categories.
const (
	Factual        Primary = "factual"
	Recommendation Primary = "recommendation"
	Comparison     Primary = "comparison"
	Status         Primary = "status"
	Planning       Primary = "planning"
	// Conversational is the default when no category keyword matches.
	Conversational Primary = "conversational"
)

// IsValid checks if the primary intent is one of the supported values.
func (p Primary) IsValid() bool {
	switch p {
	case Factual, Recommendation, Comparison, Status, Planning, Conversational:
		return true
	}
	return false
}

// Priority is how urgently a query needs external search.
type Priority string

// Search priorities, derived by thresholding Confidence.NeedsWebSearch.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PrioritySkip   Priority = "skip"
)

// QueryType is the shape of search best suited to the query.
type QueryType string

// Query types.
const (
	QueryFactual     QueryType = "factual"
	QueryLocal       QueryType = "local"
	QueryTemporal    QueryType = "temporal"
	QueryComparative QueryType = "comparative"
	QueryExploratory QueryType = "exploratory"
)

// SourceType is a coarse classification of a result's originating domain.
type SourceType string

// Source categories shared by the classifier (expected sources) and the scorer (inferred source).
const (
	SourceOfficial   SourceType = "official"
	SourceNews       SourceType = "news"
	SourceReview     SourceType = "review"
	SourceSocial     SourceType = "social"
	SourceCommercial SourceType = "commercial"
	SourceGeneral    SourceType = "general"
)

// Confidence holds the four relevance axes, each in [0,1].
type Confidence struct {
	NeedsWebSearch    float64 `json:"needs_web_search"`
	TemporalRelevance float64 `json:"temporal_relevance"`
	LocationRelevance float64 `json:"location_relevance"`
	PersonalRelevance float64 `json:"personal_relevance"`
}

// Entities are the fragments pulled out of the raw query.
type Entities struct {
	Locations      []string `json:"locations"`
	TimeReferences []string `json:"time_references"`
	Topics         []string `json:"topics"`
	Comparisons    []string `json:"comparisons"`
}

// SearchStrategy is the recommended way to run the search.
type SearchStrategy struct {
	Priority        Priority     `json:"priority"`
	QueryType       QueryType    `json:"query_type"`
	ExpectedSources []SourceType `json:"expected_sources"`
}

// ExpectsSource reports whether st is among the expected source categories.
func (s SearchStrategy) ExpectsSource(st SourceType) bool {
	for _, e := range s.ExpectedSources {
		if e == st {
			return true
		}
	}
	return false
}

// QueryIntent is the immutable output of classification, created fresh per query.
type QueryIntent struct {
	Primary        Primary        `json:"primary_intent"`
	Confidence     Confidence     `json:"confidence"`
	Entities       Entities       `json:"entities"`
	SearchStrategy SearchStrategy `json:"search_strategy"`
	Reasoning      []string       `json:"reasoning"`
}

// Default returns the lowest-confidence conversational intent used for empty or unmatched input.
func Default() QueryIntent {
	return QueryIntent{
		Primary: Conversational,
		Entities: Entities{
			Locations:      []string{},
			TimeReferences: []string{},
			Topics:         []string{},
			Comparisons:    []string{},
		},
		SearchStrategy: SearchStrategy{
			Priority:        PrioritySkip,
			QueryType:       QueryExploratory,
			ExpectedSources: []SourceType{SourceGeneral},
		},
		Reasoning: []string{},
	}
}

// HasLocations reports whether any location entity was detected.
func (q QueryIntent) HasLocations() bool { return len(q.Entities.Locations) > 0 }
