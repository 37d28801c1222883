package fallback

import domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"

// Config holds the trigger thresholds and text banks.
// The "2 of 6" trigger and the thresholds are empirical; tune rather than rely on them.
type Config struct {
	MinConditions int

	MinCount           int
	MinAverage         float64
	MinTop             float64
	MinDiversity       float64
	HighNeedsWebSearch float64

	RefineAverage      float64
	AltSourceDiversity float64
	ClarifyPersonal    float64
	VagueWords         int
	MaxQuestions       int

	LocationQuestions  []string
	TimeframeQuestions []string
	ScopeQuestions     []string
	PersonalQuestions  []string

	// Sources recommended per primary intent by the alternative_source strategy.
	Sources map[domintent.Primary][]string
}

// DefaultConfig returns the stock thresholds and English question banks.
func DefaultConfig() Config {
	return Config{
		MinConditions:      2,
		MinCount:           3,
		MinAverage:         0.4,
		MinTop:             0.5,
		MinDiversity:       0.3,
		HighNeedsWebSearch: 0.7,
		RefineAverage:      0.3,
		AltSourceDiversity: 0.2,
		ClarifyPersonal:    0.6,
		VagueWords:         3,
		MaxQuestions:       4,
		LocationQuestions: []string{
			"Which city or neighborhood are you asking about?",
		},
		TimeframeQuestions: []string{
			"When are you planning to move, or what time period do you mean?",
		},
		ScopeQuestions: []string{
			"What aspect matters most to you: housing, jobs, schools, cost of living or lifestyle?",
		},
		PersonalQuestions: []string{
			"What is your budget range?",
			"Are you moving alone, with a partner, or with family?",
		},
		Sources: map[domintent.Primary][]string{
			domintent.Factual:        {"official government sites", "census and statistics portals", "city websites"},
			domintent.Recommendation: {"review sites", "local community forums", "neighborhood guides"},
			domintent.Comparison:     {"cost-of-living comparison sites", "city ranking reports", "review sites"},
			domintent.Status:         {"local news outlets", "official city announcements"},
			domintent.Planning:       {"relocation guides", "official city websites", "moving company checklists"},
			domintent.Conversational: {"general relocation guides"},
		},
	}
}
