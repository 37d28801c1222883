package intent

import (
	"time"

	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/extract"
)

// Config holds the keyword banks and thresholds of the classifier.
// The numbers are empirically chosen and open to tuning; the algorithm does not depend on them.
type Config struct {
	// Keywords per category. Categories are scored in CategoryOrder; ties go to the earlier one.
	Keywords      map[domintent.Primary][]string
	CategoryOrder []domintent.Primary

	RelocationPhrases  []string
	TemporalBase       map[extract.TemporalCategory]float64
	TemporalTopics     []string
	HighPriorityTopics []string
	LocationKeywords   []string
	PersonalPronouns   []string
	CareerKeywords     []string

	// SearchBase is the starting NeedsWebSearch score per primary intent.
	SearchBase map[domintent.Primary]float64

	HighThreshold   float64
	MediumThreshold float64
	LowThreshold    float64

	// RecentSearchWindow lowers NeedsWebSearch when the user searched this recently.
	RecentSearchWindow time.Duration
}

// DefaultConfig returns the English keyword banks.
func DefaultConfig() Config {
	return Config{
		Keywords: map[domintent.Primary][]string{
			domintent.Factual: {
				"what is", "what's", "what are", "how much", "how many", "cost of", "average", "median",
				"statistics", "population", "rate", "requirements", "tax", "taxes", "data", "facts",
			},
			domintent.Recommendation: {
				"best", "recommend", "recommendation", "top", "good", "suggest", "should i",
				"where to", "ideal", "great", "favorite", "worth",
			},
			domintent.Comparison: {
				"vs", "versus", "compare", "comparison", "difference", "better than", "cheaper",
				"which is better", "pros and cons",
			},
			domintent.Status: {
				"current", "currently", "now", "today", "latest", "news", "update", "status",
				"weather", "traffic", "open", "happening",
			},
			domintent.Planning: {
				"plan", "planning", "moving", "move", "relocate", "relocating", "relocation",
				"checklist", "timeline", "prepare", "steps", "how to", "budget for",
			},
		},
		CategoryOrder: []domintent.Primary{
			domintent.Comparison, domintent.Recommendation, domintent.Status,
			domintent.Planning, domintent.Factual,
		},
		RelocationPhrases: []string{
			"moving to", "move to", "relocate to", "relocating to", "relocation to",
			"thinking of moving", "planning to move", "planning a move",
		},
		TemporalBase: map[extract.TemporalCategory]float64{
			extract.Immediate:    0.8,
			extract.Recent:       0.7,
			extract.SpecificDate: 0.6,
			extract.Future:       0.5,
		},
		TemporalTopics: []string{
			"weather", "news", "traffic", "events", "happening", "forecast", "market update",
		},
		HighPriorityTopics: []string{
			"cost of living", "rent", "rents", "housing market", "home prices", "job market",
			"jobs", "weather", "news", "crime", "crime rate", "schools", "taxes", "salary",
		},
		LocationKeywords: []string{
			"neighborhood", "neighborhoods", "local", "nearby", "near me", "commute", "area",
			"downtown", "suburb", "suburbs", "district", "city",
		},
		PersonalPronouns: []string{"i", "i'm", "i've", "me", "my", "mine", "we", "our", "us", "myself"},
		CareerKeywords: []string{
			"job", "jobs", "career", "salary", "work", "employer", "employers", "hiring", "industry",
		},
		SearchBase: map[domintent.Primary]float64{
			domintent.Status:         0.6,
			domintent.Factual:        0.5,
			domintent.Recommendation: 0.5,
			domintent.Comparison:     0.5,
			domintent.Planning:       0.4,
			domintent.Conversational: 0.1,
		},
		HighThreshold:      0.7,
		MediumThreshold:    0.4,
		LowThreshold:       0.2,
		RecentSearchWindow: 2 * time.Minute,
	}
}

// expectedSources maps the chosen query type to the source categories worth favoring.
var expectedSources = map[domintent.QueryType][]domintent.SourceType{
	domintent.QueryTemporal:    {domintent.SourceNews, domintent.SourceOfficial},
	domintent.QueryLocal:       {domintent.SourceReview, domintent.SourceOfficial, domintent.SourceGeneral},
	domintent.QueryComparative: {domintent.SourceReview, domintent.SourceCommercial},
	domintent.QueryFactual:     {domintent.SourceOfficial, domintent.SourceGeneral},
	domintent.QueryExploratory: {domintent.SourceReview, domintent.SourceGeneral, domintent.SourceSocial},
}
