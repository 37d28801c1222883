package scoring

import (
	"fmt"
	"math"
	"testing"
	"time"

	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return New(WithClock(func() time.Time { return now }))
}

func austinIntent() domintent.QueryIntent {
	in := domintent.Default()
	in.Primary = domintent.Recommendation
	in.Confidence = domintent.Confidence{NeedsWebSearch: 0.7, LocationRelevance: 0.8}
	in.Entities.Locations = []string{"Austin"}
	in.Entities.Topics = []string{"neighborhoods", "austin"}
	in.SearchStrategy = domintent.SearchStrategy{
		Priority:        domintent.PriorityHigh,
		QueryType:       domintent.QueryLocal,
		ExpectedSources: []domintent.SourceType{domintent.SourceReview, domintent.SourceOfficial, domintent.SourceGeneral},
	}
	return in
}

func austinRewrite() query.RewrittenQuery {
	return query.RewrittenQuery{
		Original:    "best neighborhoods in Austin",
		Rewritten:   "best neighborhoods in Austin for newcomers city",
		SearchTerms: []string{"best", "neighborhoods", "austin", "newcomers", "city"},
		Strategy:    query.Contextual,
	}
}

func sampleResults() []result.WebSearchResult {
	return []result.WebSearchResult{
		{Title: "The 10 Best Neighborhoods in Austin for Newcomers", Snippet: "Our guide to the best neighborhoods in Austin. Rankings use safety and rent data.", Link: "https://www.niche.com/austin", Rank: 1},
		{Title: "Austin neighborhoods - City of Austin official site", Snippet: "Official neighborhood planning information for residents of Austin, Texas.", Link: "https://austintexas.gov/neighborhoods", Rank: 2},
		{Title: "Where should I live in Austin?", Snippet: "Reddit thread where locals recommend neighborhoods in Austin for young professionals.", Link: "https://reddit.com/r/Austin/123", Rank: 3},
		{Title: "Austin apartments for rent", Snippet: "Browse listings of Austin apartments for rent. Click here to buy now!", Link: "https://www.apartments.com/austin-tx/", Rank: 4},
		{Title: "Cheap", Snippet: "short", Link: "https://spam.example/", Rank: 5},
		{Title: "History of Texas", Snippet: "Texas joined the union in 1845 after a brief period as a republic.", Link: "https://en.wikipedia.org/wiki/Texas", Rank: 6},
	}
}

func TestFilterAndRank_Empty(t *testing.T) {
	got := newTestScorer().FilterAndRank(nil, austinIntent(), austinRewrite(), -1)
	if len(got.Results) != 0 || !got.Summary.WeakResults {
		t.Errorf("got %+v, want empty weak result", got.Summary)
	}
	if got.Results == nil {
		t.Error("Results must be an empty slice, not nil")
	}
	if !got.Suggestions.NeedsRefinement {
		t.Error("expected refinement suggestions for empty results")
	}
}

func TestFilterAndRank_SortedAndBounded(t *testing.T) {
	got := newTestScorer().FilterAndRank(sampleResults(), austinIntent(), austinRewrite(), 0)
	if got.Summary.TotalProcessed != 6 {
		t.Errorf("TotalProcessed = %d", got.Summary.TotalProcessed)
	}
	for i := 1; i < len(got.Results); i++ {
		if got.Results[i-1].FinalScore < got.Results[i].FinalScore {
			t.Fatalf("results not sorted at %d", i)
		}
	}
	for _, r := range got.Results {
		for _, v := range []float64{r.RelevanceScore, r.SemanticScore, r.ContextScore, r.QualityScore, r.FinalScore} {
			if v < 0 || v > 1 {
				t.Errorf("%s: score %v out of [0,1]", r.Link, v)
			}
		}
	}
	if got.Results[0].Link != "https://www.niche.com/austin" {
		t.Errorf("top = %s, want niche guide", got.Results[0].Link)
	}
}

func TestFilterAndRank_CapsAtEight(t *testing.T) {
	raw := make([]result.WebSearchResult, 0, 12)
	for i := 1; i <= 12; i++ {
		raw = append(raw, result.WebSearchResult{
			Title:   fmt.Sprintf("Best neighborhoods in Austin guide %d", i),
			Snippet: "A guide to the best neighborhoods in Austin for newcomers. Updated rankings.",
			Link:    fmt.Sprintf("https://site%d.example.org/austin", i),
			Rank:    i,
		})
	}
	got := newTestScorer().FilterAndRank(raw, austinIntent(), austinRewrite(), 0)
	if len(got.Results) != result.MaxFiltered {
		t.Fatalf("len = %d, want %d", len(got.Results), result.MaxFiltered)
	}
	// identical content ties on score and falls back to rank order
	for i, r := range got.Results {
		if r.Rank != i+1 {
			t.Errorf("position %d has rank %d", i, r.Rank)
		}
	}
}

func TestFilterAndRank_ThresholdMonotonic(t *testing.T) {
	s := newTestScorer()
	raw := sampleResults()
	thresholds := []float64{0, 0.2, 0.3, 0.45, 0.5, 0.6, 0.7, 0.9, 1}
	for i := 0; i < len(thresholds)-1; i++ {
		lo := s.FilterAndRank(raw, austinIntent(), austinRewrite(), thresholds[i])
		hi := s.FilterAndRank(raw, austinIntent(), austinRewrite(), thresholds[i+1])
		links := map[string]bool{}
		for _, r := range lo.Results {
			links[r.Link] = true
		}
		for _, r := range hi.Results {
			if !links[r.Link] {
				t.Errorf("T=%.2f result %s missing at T=%.2f", thresholds[i+1], r.Link, thresholds[i])
			}
		}
	}
}

func TestFilterAndRank_ThresholdDropsLowScores(t *testing.T) {
	got := newTestScorer().FilterAndRank(sampleResults(), austinIntent(), austinRewrite(), 0.6)
	for _, r := range got.Results {
		if r.FinalScore < 0.6 {
			t.Errorf("%s kept with %.2f", r.Link, r.FinalScore)
		}
	}
}

func TestFilterAndRank_DefaultThreshold(t *testing.T) {
	s := newTestScorer()
	a := s.FilterAndRank(sampleResults(), austinIntent(), austinRewrite(), -1)
	b := s.FilterAndRank(sampleResults(), austinIntent(), austinRewrite(), s.MinQuality())
	if len(a.Results) != len(b.Results) {
		t.Errorf("negative threshold kept %d, default kept %d", len(a.Results), len(b.Results))
	}
}

func TestFilterAndRank_SpamPenalized(t *testing.T) {
	got := newTestScorer().FilterAndRank(sampleResults(), austinIntent(), austinRewrite(), 0)
	byLink := map[string]result.ScoredResult{}
	for _, r := range got.Results {
		byLink[r.Link] = r
	}
	gov := byLink["https://austintexas.gov/neighborhoods"]
	spam := byLink["https://www.apartments.com/austin-tx/"]
	if gov.QualityScore <= spam.QualityScore {
		t.Errorf("gov quality %.2f should beat spammy listing %.2f", gov.QualityScore, spam.QualityScore)
	}
}

func TestSummary_WeakResults(t *testing.T) {
	strong := []result.ScoredResult{{FinalScore: 0.8}, {FinalScore: 0.7}, {FinalScore: 0.6}}
	if summarize(3, strong).WeakResults {
		t.Error("three strong results should not be weak")
	}
	if !summarize(2, strong[:2]).WeakResults {
		t.Error("fewer than three results should be weak")
	}
	low := []result.ScoredResult{{FinalScore: 0.5}, {FinalScore: 0.4}, {FinalScore: 0.4}}
	if !summarize(3, low).WeakResults {
		t.Error("average below 0.5 should be weak")
	}
	s := summarize(3, []result.ScoredResult{{SemanticScore: 0.9, RelevanceScore: 0.1}})
	if s.TopScoreType != result.ScoreSemantic {
		t.Errorf("TopScoreType = %q, want semantic", s.TopScoreType)
	}
}

func TestSuggestions(t *testing.T) {
	in := domintent.Default()
	in.Primary = domintent.Recommendation
	in.Entities.Topics = []string{"coffee", "shops"}
	rw := query.RewrittenQuery{
		Original:    "good coffee shops",
		Rewritten:   "good coffee shops with wifi outdoor seating quiet vegan pastries parking",
		SearchTerms: []string{"good", "coffee", "shops", "wifi", "outdoor", "seating", "quiet", "vegan", "pastries"},
	}
	got := newTestScorer().FilterAndRank(nil, in, rw, 0)
	sug := got.Suggestions
	if !sug.NeedsRefinement {
		t.Fatal("expected refinement")
	}
	wantMissing := map[string]bool{"location": true, "timeframe": true}
	for _, m := range sug.MissingContext {
		delete(wantMissing, m)
	}
	if len(wantMissing) != 0 {
		t.Errorf("MissingContext = %v", sug.MissingContext)
	}
	wantQueries := map[string]bool{
		rw.Rewritten + " in your target city": true,
		rw.Rewritten + " 2026":                true,
		"good coffee shops wifi outdoor":      true,
		"top rated coffee shops reviews":      true,
	}
	for _, q := range sug.SuggestedQueries {
		delete(wantQueries, q)
	}
	if len(wantQueries) != 0 {
		t.Errorf("missing suggestions %v in %v", wantQueries, sug.SuggestedQueries)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for p, w := range DefaultConfig().Weights {
		if sum := w.Relevance + w.Semantic + w.Context + w.Quality; math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s weights sum to %v", p, sum)
		}
	}
}

func TestEnrich(t *testing.T) {
	tests := []struct {
		name       string
		in         result.WebSearchResult
		wantDomain string
		wantSource domintent.SourceType
	}{
		{"gov", result.WebSearchResult{Link: "https://www.census.gov/x", Title: "Population"}, "census.gov", domintent.SourceOfficial},
		{"news domain", result.WebSearchResult{Link: "https://edition.cnn.com/a", Title: "Storm"}, "edition.cnn.com", domintent.SourceNews},
		{"social", result.WebSearchResult{Link: "https://old.reddit.com/r/x", Title: "Thread"}, "old.reddit.com", domintent.SourceSocial},
		{"review title", result.WebSearchResult{Link: "https://blog.example.com", Title: "Honest reviews of Austin"}, "blog.example.com", domintent.SourceReview},
		{"commercial", result.WebSearchResult{Link: "https://www.zillow.com/austin", Title: "Homes"}, "zillow.com", domintent.SourceCommercial},
		{"general", result.WebSearchResult{Link: "https://example.com", Title: "Austin"}, "example.com", domintent.SourceGeneral},
		{"bad link", result.WebSearchResult{Link: "::", Title: "x"}, "", domintent.SourceGeneral},
		{"kept", result.WebSearchResult{Link: "https://example.com", Domain: "given.org", SourceType: domintent.SourceNews}, "given.org", domintent.SourceNews},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Enrich(tt.in, now)
			if got.Domain != tt.wantDomain {
				t.Errorf("Domain = %q, want %q", got.Domain, tt.wantDomain)
			}
			if got.SourceType != tt.wantSource {
				t.Errorf("SourceType = %q, want %q", got.SourceType, tt.wantSource)
			}
		})
	}
}

func TestPublishDate(t *testing.T) {
	tests := []struct {
		snippet string
		want    time.Time
		ok      bool
	}{
		{"Published 2026-06-01 by staff", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"Jun 3, 2026 — Rents rose", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), true},
		{"September 12, 2025. Prices", time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC), true},
		{"3 days ago · Traffic update", now.Add(-72 * time.Hour), true},
		{"no date here", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.snippet, func(t *testing.T) {
			got := publishDate(tt.snippet, now)
			if (got != nil) != tt.ok {
				t.Fatalf("publishDate = %v, ok want %v", got, tt.ok)
			}
			if got != nil && !got.Equal(tt.want) {
				t.Errorf("publishDate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextScore_Freshness(t *testing.T) {
	in := austinIntent()
	in.Confidence.TemporalRelevance = 0.8
	fresh := now.Add(-48 * time.Hour)
	stale := now.AddDate(-2, 0, 0)
	r := result.WebSearchResult{SourceType: domintent.SourceNews}

	r.PublishDate = &fresh
	f, _ := contextScore(r, "", in, now)
	r.PublishDate = &stale
	s, _ := contextScore(r, "", in, now)
	if f <= s {
		t.Errorf("fresh %.2f should beat stale %.2f", f, s)
	}
}
