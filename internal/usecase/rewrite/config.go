package rewrite

import (
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
)

// Bucket expands queries that mention one of Triggers with up to two Expansions.
type Bucket struct {
	Name       string
	Triggers   []string
	Expansions []string
}

// Config holds the rewriting vocabularies.
type Config struct {
	// Filler is stripped from the start of a query, longest match first.
	Filler  []string
	Buckets []Bucket
	// Frameworks is appended by the contextual strategy per primary intent.
	Frameworks     map[domintent.Primary]string
	RecencyTokens  []string
	MaxLength      int
	MaxExpansions  int
	MaxTargetAdded int
}

// DefaultConfig returns the English vocabularies.
func DefaultConfig() Config {
	return Config{
		Filler: []string{
			"can you tell me", "could you tell me", "can you help me find", "i want to know",
			"i would like to know", "i was wondering", "do you know", "tell me about",
			"what do you think about", "about", "please", "hey", "hi", "hello", "um",
		},
		Buckets: []Bucket{
			{Name: "housing", Triggers: []string{"rent", "rental", "apartment", "apartments", "housing", "home", "homes"},
				Expansions: []string{"apartments", "rental prices"}},
			{Name: "cost", Triggers: []string{"cost", "costs", "expensive", "afford", "affordable", "cheap", "prices"},
				Expansions: []string{"cost of living", "expenses"}},
			{Name: "jobs", Triggers: []string{"job", "jobs", "career", "employment", "work", "hiring"},
				Expansions: []string{"employment", "job market"}},
			{Name: "schools", Triggers: []string{"school", "schools", "education"},
				Expansions: []string{"school ratings", "education"}},
			{Name: "safety", Triggers: []string{"crime", "safe", "safety", "dangerous"},
				Expansions: []string{"crime rates", "safety"}},
			{Name: "neighborhoods", Triggers: []string{"neighborhood", "neighborhoods", "area", "areas"},
				Expansions: []string{"districts", "areas to live"}},
			{Name: "transport", Triggers: []string{"commute", "transit", "traffic", "transportation"},
				Expansions: []string{"public transportation", "commute times"}},
			{Name: "weather", Triggers: []string{"weather", "climate"},
				Expansions: []string{"forecast", "climate"}},
		},
		Frameworks: map[domintent.Primary]string{
			domintent.Recommendation: "for newcomers",
			domintent.Factual:        "official information",
			domintent.Status:         "local updates",
			domintent.Comparison:     "pros and cons",
		},
		RecencyTokens:  []string{"latest", "current", "currently", "recent", "today", "now", "this year"},
		MaxLength:      query.MaxRewrittenLength,
		MaxExpansions:  2,
		MaxTargetAdded: 2,
	}
}
