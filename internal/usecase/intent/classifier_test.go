package intent

import (
	"reflect"
	"testing"
	"time"

	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier() *Classifier {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func TestClassify_EmptyQuery(t *testing.T) {
	c := newTestClassifier()
	for _, q := range []string{"", "   "} {
		got := c.Classify(q, nil)
		if got.Primary != domintent.Conversational {
			t.Errorf("Primary = %q, want conversational", got.Primary)
		}
		if got.Confidence != (domintent.Confidence{}) {
			t.Errorf("Confidence = %+v, want zero", got.Confidence)
		}
		if len(got.Entities.Locations)+len(got.Entities.Topics)+len(got.Entities.TimeReferences) != 0 {
			t.Errorf("expected no entities, got %+v", got.Entities)
		}
		if got.SearchStrategy.Priority != domintent.PrioritySkip {
			t.Errorf("Priority = %q, want skip", got.SearchStrategy.Priority)
		}
	}
}

func TestClassify_TemporalFloor(t *testing.T) {
	c := newTestClassifier()
	queries := []string{
		"rent prices in 2025",
		"current mortgage rates",
		"latest news about Austin",
		"what is open today",
		"Is the job market good in 2026?",
		"CURRENT events",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			got := c.Classify(q, nil)
			if got.Confidence.TemporalRelevance < 0.6 {
				t.Errorf("TemporalRelevance = %.2f, want >= 0.6", got.Confidence.TemporalRelevance)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier()
	uc := &usercontext.Context{
		Version:      usercontext.Version,
		TargetCities: []string{"Austin", "Denver"},
		CareerField:  "software engineering",
		Preferences:  map[string]string{"budget": "affordable rent", "lifestyle": "walkable"},
		LastSearchAt: fixedNow.Add(-time.Minute),
	}
	queries := []string{
		"Should I move to Austin or Denver for software jobs?",
		"best walkable neighborhoods in Austin",
		"hello there",
	}
	for _, q := range queries {
		a := c.Classify(q, uc)
		b := c.Classify(q, uc)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Classify(%q) not deterministic:\n%+v\n%+v", q, a, b)
		}
	}
}

func TestClassify_WeatherScenario(t *testing.T) {
	got := newTestClassifier().Classify("current weather in Denver today", nil)

	if got.Primary != domintent.Status && got.Primary != domintent.Factual {
		t.Errorf("Primary = %q, want status or factual", got.Primary)
	}
	if got.Confidence.TemporalRelevance < 0.7 {
		t.Errorf("TemporalRelevance = %.2f, want >= 0.7", got.Confidence.TemporalRelevance)
	}
	if !reflect.DeepEqual(got.Entities.Locations, []string{"Denver"}) {
		t.Errorf("Locations = %v, want [Denver]", got.Entities.Locations)
	}
	if got.SearchStrategy.Priority != domintent.PriorityHigh {
		t.Errorf("Priority = %q, want high", got.SearchStrategy.Priority)
	}
	if got.SearchStrategy.QueryType != domintent.QueryTemporal {
		t.Errorf("QueryType = %q, want temporal", got.SearchStrategy.QueryType)
	}
	if !got.SearchStrategy.ExpectsSource(domintent.SourceNews) {
		t.Errorf("ExpectedSources = %v, want news", got.SearchStrategy.ExpectedSources)
	}
	if len(got.Reasoning) == 0 {
		t.Error("expected reasoning")
	}
}

func TestClassify_PrimaryIntent(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		query string
		want  domintent.Primary
	}{
		{"best neighborhoods in Austin", domintent.Recommendation},
		{"Austin vs Denver", domintent.Comparison},
		{"how much is the average rent", domintent.Factual},
		{"I'm moving to Seattle next month", domintent.Planning},
		{"what is the best way to relocate to Austin", domintent.Planning},
		{"thanks, that helps", domintent.Conversational},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := c.Classify(tt.query, nil).Primary; got != tt.want {
				t.Errorf("Primary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_ComparisonEntities(t *testing.T) {
	got := newTestClassifier().Classify("Austin vs Denver for tech jobs", nil)
	if got.SearchStrategy.QueryType != domintent.QueryComparative {
		t.Errorf("QueryType = %q, want comparative", got.SearchStrategy.QueryType)
	}
	if len(got.Entities.Comparisons) != 2 {
		t.Errorf("Comparisons = %v", got.Entities.Comparisons)
	}
}

func TestClassify_UserContextRaisesRelevance(t *testing.T) {
	c := newTestClassifier()
	q := "are there good jobs in Austin for me"
	without := c.Classify(q, nil)
	with := c.Classify(q, &usercontext.Context{
		Version:      usercontext.Version,
		TargetCities: []string{"Austin"},
		CareerField:  "nursing",
	})
	if with.Confidence.LocationRelevance <= without.Confidence.LocationRelevance {
		t.Errorf("location: with %.2f, without %.2f", with.Confidence.LocationRelevance, without.Confidence.LocationRelevance)
	}
	if with.Confidence.PersonalRelevance <= without.Confidence.PersonalRelevance {
		t.Errorf("personal: with %.2f, without %.2f", with.Confidence.PersonalRelevance, without.Confidence.PersonalRelevance)
	}
}

func TestClassify_RecentSearchLowersNeed(t *testing.T) {
	c := newTestClassifier()
	q := "rent in Austin"
	base := c.Classify(q, nil)
	recent := c.Classify(q, &usercontext.Context{LastSearchAt: fixedNow.Add(-30 * time.Second)})
	stale := c.Classify(q, &usercontext.Context{LastSearchAt: fixedNow.Add(-time.Hour)})

	if recent.Confidence.NeedsWebSearch >= base.Confidence.NeedsWebSearch {
		t.Errorf("recent %.2f should be below base %.2f", recent.Confidence.NeedsWebSearch, base.Confidence.NeedsWebSearch)
	}
	if stale.Confidence.NeedsWebSearch != base.Confidence.NeedsWebSearch {
		t.Errorf("stale %.2f should equal base %.2f", stale.Confidence.NeedsWebSearch, base.Confidence.NeedsWebSearch)
	}
}

func TestClassify_ScoresClamped(t *testing.T) {
	c := newTestClassifier()
	q := "I need the latest news today on current rent, weather and traffic in Austin, Denver, Seattle, Boston and Miami this week"
	got := c.Classify(q, &usercontext.Context{
		TargetCities: []string{"Austin"}, CareerField: "teaching",
		Preferences:         map[string]string{"x": "rent"},
		ConversationHistory: []usercontext.Turn{{Role: "user", Content: "hi"}},
	})
	for name, v := range map[string]float64{
		"needs":    got.Confidence.NeedsWebSearch,
		"temporal": got.Confidence.TemporalRelevance,
		"location": got.Confidence.LocationRelevance,
		"personal": got.Confidence.PersonalRelevance,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v out of [0,1]", name, v)
		}
	}
}

func TestPriorityThresholds(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		needs float64
		want  domintent.Priority
	}{
		{1, domintent.PriorityHigh},
		{0.7, domintent.PriorityHigh},
		{0.69, domintent.PriorityMedium},
		{0.4, domintent.PriorityMedium},
		{0.2, domintent.PriorityLow},
		{0.19, domintent.PrioritySkip},
		{0, domintent.PrioritySkip},
	}
	for _, tt := range tests {
		if got := c.priority(tt.needs); got != tt.want {
			t.Errorf("priority(%.2f) = %q, want %q", tt.needs, got, tt.want)
		}
	}
}
