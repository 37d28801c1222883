package scoring

import (
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
)

// Weights combine the four axis scores into the final score. They sum to 1.
type Weights struct {
	Relevance float64
	Semantic  float64
	Context   float64
	Quality   float64
}

// Config holds thresholds and lookup tables of the scorer.
type Config struct {
	MinQuality float64
	MaxResults int

	// Weights by search priority. Low priority leans on relevance and semantic,
	// high priority on semantic and context.
	Weights map[domintent.Priority]Weights

	// Authority bonus by exact domain; suffix rules apply when absent.
	Authority   map[string]float64
	SpamPhrases []string
}

// DefaultConfig returns the stock scoring tables.
func DefaultConfig() Config {
	low := Weights{Relevance: 0.4, Semantic: 0.3, Context: 0.15, Quality: 0.15}
	return Config{
		MinQuality: 0.3,
		MaxResults: result.MaxFiltered,
		Weights: map[domintent.Priority]Weights{
			domintent.PriorityHigh:   {Relevance: 0.25, Semantic: 0.3, Context: 0.3, Quality: 0.15},
			domintent.PriorityMedium: {Relevance: 0.35, Semantic: 0.25, Context: 0.2, Quality: 0.2},
			domintent.PriorityLow:    low,
			domintent.PrioritySkip:   low,
		},
		Authority: map[string]float64{
			"wikipedia.org":  0.2,
			"census.gov":     0.3,
			"bls.gov":        0.3,
			"reuters.com":    0.2,
			"apnews.com":     0.2,
			"nytimes.com":    0.15,
			"npr.org":        0.15,
			"bbc.com":        0.15,
			"niche.com":      0.1,
			"numbeo.com":     0.1,
			"weather.gov":    0.3,
			"weather.com":    0.15,
			"zillow.com":     0.05,
			"apartments.com": 0.05,
		},
		SpamPhrases: []string{
			"click here", "buy now", "limited time", "100% free", "act now",
			"you won't believe", "sign up now", "make money fast",
		},
	}
}

var newsDomains = map[string]struct{}{
	"cnn.com": {}, "nytimes.com": {}, "reuters.com": {}, "apnews.com": {}, "bbc.com": {},
	"bbc.co.uk": {}, "washingtonpost.com": {}, "usatoday.com": {}, "npr.org": {},
	"bloomberg.com": {}, "axios.com": {}, "theguardian.com": {}, "nbcnews.com": {},
	"cbsnews.com": {}, "foxnews.com": {}, "weather.com": {},
}

var socialDomains = map[string]struct{}{
	"reddit.com": {}, "twitter.com": {}, "x.com": {}, "facebook.com": {}, "quora.com": {},
	"instagram.com": {}, "tiktok.com": {}, "youtube.com": {}, "linkedin.com": {},
}

var reviewDomains = map[string]struct{}{
	"yelp.com": {}, "tripadvisor.com": {}, "niche.com": {}, "areavibes.com": {},
	"glassdoor.com": {}, "bestplaces.net": {}, "numbeo.com": {}, "consumerreports.org": {},
}

var commercialDomains = map[string]struct{}{
	"zillow.com": {}, "apartments.com": {}, "realtor.com": {}, "redfin.com": {},
	"trulia.com": {}, "amazon.com": {}, "rent.com": {}, "homes.com": {}, "uhaul.com": {},
}

var sourceWeight = map[domintent.SourceType]float64{
	domintent.SourceOfficial:   0.1,
	domintent.SourceNews:       0.05,
	domintent.SourceReview:     0.05,
	domintent.SourceGeneral:    0,
	domintent.SourceCommercial: -0.05,
	domintent.SourceSocial:     -0.1,
}
