// Package scoring enriches raw search hits, scores them on four axes, and
// returns the filtered, ranked set with refinement suggestions.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

var intentPatterns = map[domintent.Primary]*regexp.Regexp{
	domintent.Factual:        regexp.MustCompile(`(?i)\b(statistics|data|average|median|facts?|rates?|percent|census|official|report)\b`),
	domintent.Recommendation: regexp.MustCompile(`(?i)\b(best|top|recommended|guide|favorite|must|rated|reviews?)\b`),
	domintent.Comparison:     regexp.MustCompile(`(?i)\b(vs|versus|compare|comparison|differences?|pros|cons|better)\b`),
	domintent.Status:         regexp.MustCompile(`(?i)\b(today|now|current|latest|update[sd]?|live|breaking|open)\b`),
	domintent.Planning:       regexp.MustCompile(`(?i)\b(guide|checklist|steps|tips|how to|plan|moving|relocat\w*)\b`),
}

var temporalWords = regexp.MustCompile(`(?i)\b(today|current|currently|latest|recent|recently|new|updated|(?:19|20)\d{2}|this (?:week|month|year))\b`)

// Scorer is stateless apart from its clock and safe for concurrent use.
type Scorer struct {
	cfg Config
	now func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithConfig replaces the scoring tables.
func WithConfig(cfg Config) Option {
	return func(s *Scorer) { s.cfg = cfg }
}

// WithClock sets the time source for freshness and relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a scorer with DefaultConfig.
func New(opts ...Option) *Scorer {
	s := &Scorer{cfg: DefaultConfig(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.MaxResults <= 0 {
		s.cfg.MaxResults = result.MaxFiltered
	}
	return s
}

// MinQuality returns the default filtering threshold.
func (s *Scorer) MinQuality() float64 { return s.cfg.MinQuality }

// FilterAndRank scores raw, drops results whose final score is below threshold,
// and returns the survivors in descending order. A negative threshold selects
// the configured default. It never fails.
func (s *Scorer) FilterAndRank(
	raw []result.WebSearchResult, in domintent.QueryIntent, rw query.RewrittenQuery, threshold float64,
) result.FilteredResults {
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = s.cfg.MinQuality
	}
	out := result.Empty()
	out.Summary.TotalProcessed = len(raw)
	if len(raw) == 0 {
		out.Suggestions = s.suggestions(in, rw, out.Results)
		return out
	}

	now := s.now()
	terms := queryTerms(rw)
	weights, ok := s.cfg.Weights[in.SearchStrategy.Priority]
	if !ok {
		weights = s.cfg.Weights[domintent.PriorityMedium]
	}

	scored := make([]result.ScoredResult, 0, len(raw))
	for _, r := range raw {
		sr := s.score(Enrich(r, now), in, terms, weights, now)
		if sr.FinalScore >= threshold {
			scored = append(scored, sr)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].FinalScore != scored[j].FinalScore {
			return scored[i].FinalScore > scored[j].FinalScore
		}
		return scored[i].Rank < scored[j].Rank
	})
	if len(scored) > s.cfg.MaxResults {
		scored = scored[:s.cfg.MaxResults]
	}

	out.Results = scored
	out.Summary = summarize(len(raw), scored)
	out.Suggestions = s.suggestions(in, rw, scored)
	return out
}

func (s *Scorer) score(
	r result.WebSearchResult, in domintent.QueryIntent, terms []string, w Weights, now time.Time,
) result.ScoredResult {
	sr := result.ScoredResult{WebSearchResult: r}
	body := r.Title + " " + r.Snippet

	var why []string
	sr.RelevanceScore, why = relevance(r, terms)
	sr.Reasoning = append(sr.Reasoning, why...)
	sr.SemanticScore, why = semantic(body, in)
	sr.Reasoning = append(sr.Reasoning, why...)
	sr.ContextScore, why = contextScore(r, body, in, now)
	sr.Reasoning = append(sr.Reasoning, why...)
	sr.QualityScore, why = s.quality(r)
	sr.Reasoning = append(sr.Reasoning, why...)

	sr.FinalScore = domain.Clamp01(w.Relevance*sr.RelevanceScore + w.Semantic*sr.SemanticScore +
		w.Context*sr.ContextScore + w.Quality*sr.QualityScore)
	sr.Reasoning = append(sr.Reasoning, fmt.Sprintf("final %.2f", sr.FinalScore))
	return sr
}

func queryTerms(rw query.RewrittenQuery) []string {
	terms := append([]string(nil), rw.SearchTerms...)
	terms = append(terms, text.ContentWords(rw.Original)...)
	terms = append(terms, text.ContentWords(rw.Rewritten)...)
	return text.Unique(terms)
}

func relevance(r result.WebSearchResult, terms []string) (float64, []string) {
	var rankBonus float64
	if r.Rank >= 1 {
		rankBonus = math.Max(0, 0.1-0.01*float64(r.Rank-1))
	}
	if len(terms) == 0 {
		return domain.Clamp01(rankBonus), nil
	}
	title := wordSet(r.Title)
	snippet := wordSet(r.Snippet)
	var inTitle, inSnippet int
	for _, t := range terms {
		if _, ok := title[t]; ok {
			inTitle++
		}
		if _, ok := snippet[t]; ok {
			inSnippet++
		}
	}
	n := float64(len(terms))
	score := domain.Clamp01(0.55*float64(inTitle)/n + 0.35*float64(inSnippet)/n + rankBonus)
	return score, []string{fmt.Sprintf("relevance %.2f: %d/%d terms in title, %d in snippet",
		score, inTitle, len(terms), inSnippet)}
}

func semantic(body string, in domintent.QueryIntent) (float64, []string) {
	score := 0.3
	var why []string
	if re, ok := intentPatterns[in.Primary]; ok {
		if m := len(text.Unique(lowerAll(re.FindAllString(body, -1)))); m > 0 {
			score += math.Min(0.4, 0.15*float64(m))
			why = append(why, fmt.Sprintf("%d %s pattern(s)", m, in.Primary))
		}
	}
	if mentionsLocation(body, in.Entities.Locations) {
		score += 0.15
	}
	if in.Confidence.TemporalRelevance >= 0.6 && temporalWords.MatchString(body) {
		score += 0.15
	}
	overlap := 0
	words := wordSet(body)
	for _, t := range in.Entities.Topics {
		if _, ok := words[t]; ok {
			overlap++
		}
	}
	score += math.Min(0.2, 0.05*float64(overlap))
	score = domain.Clamp01(score)
	return score, append(why, fmt.Sprintf("semantic %.2f", score))
}

func contextScore(r result.WebSearchResult, body string, in domintent.QueryIntent, now time.Time) (float64, []string) {
	score := 0.5
	var why []string
	if in.SearchStrategy.ExpectsSource(r.SourceType) {
		score += 0.3
		why = append(why, fmt.Sprintf("expected source %s", r.SourceType))
	}
	if in.Confidence.TemporalRelevance >= 0.6 && r.PublishDate != nil {
		age := now.Sub(*r.PublishDate)
		switch {
		case age <= 7*24*time.Hour:
			score += 0.2
		case age <= 30*24*time.Hour:
			score += 0.1
		case age <= 365*24*time.Hour:
			score += 0.05
		default:
			score -= 0.1
			why = append(why, "stale content")
		}
	}
	if mentionsLocation(body, in.Entities.Locations) {
		score += 0.2
	}
	score = domain.Clamp01(score)
	return score, append(why, fmt.Sprintf("context %.2f", score))
}

func (s *Scorer) quality(r result.WebSearchResult) (float64, []string) {
	score := 0.5 + s.authority(r.Domain) + sourceWeight[r.SourceType]

	titleLen := utf8.RuneCountInString(strings.TrimSpace(r.Title))
	snippetLen := utf8.RuneCountInString(strings.TrimSpace(r.Snippet))
	switch {
	case titleLen < 10:
		score -= 0.15
	case titleLen > 120:
		score -= 0.1
	}
	switch {
	case snippetLen < 40:
		score -= 0.15
	case snippetLen > 400:
		score -= 0.05
	}
	if strings.Contains(r.Snippet, ". ") || strings.HasSuffix(strings.TrimSpace(r.Snippet), ".") {
		score += 0.05
	}
	body := r.Title + " " + r.Snippet
	spam := 0
	for _, p := range s.cfg.SpamPhrases {
		if text.ContainsPhrase(body, p) {
			spam++
		}
	}
	score -= 0.2 * float64(spam)
	score = domain.Clamp01(score)
	why := []string{fmt.Sprintf("quality %.2f", score)}
	if spam > 0 {
		why = append(why, fmt.Sprintf("%d spam phrase(s)", spam))
	}
	return score, why
}

func (s *Scorer) authority(d string) float64 {
	if d == "" {
		return 0
	}
	if v, ok := s.cfg.Authority[registrable(d)]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(d, ".gov") || strings.Contains(d, ".gov."):
		return 0.3
	case strings.HasSuffix(d, ".edu"):
		return 0.25
	case strings.HasSuffix(d, ".org"):
		return 0.1
	}
	return 0
}

func summarize(processed int, scored []result.ScoredResult) result.Summary {
	sum := result.Summary{
		TotalProcessed: processed,
		TotalFiltered:  len(scored),
		TopScoreType:   result.ScoreRelevance,
	}
	if len(scored) == 0 {
		sum.WeakResults = true
		return sum
	}
	var total, rel, sem, cont, qual float64
	for _, r := range scored {
		total += r.FinalScore
		rel += r.RelevanceScore
		sem += r.SemanticScore
		cont += r.ContextScore
		qual += r.QualityScore
	}
	sum.AverageScore = total / float64(len(scored))
	best := rel
	for _, c := range []struct {
		t result.ScoreType
		v float64
	}{{result.ScoreSemantic, sem}, {result.ScoreContext, cont}, {result.ScoreQuality, qual}} {
		if c.v > best {
			best, sum.TopScoreType = c.v, c.t
		}
	}
	sum.WeakResults = result.Weak(sum.AverageScore, len(scored))
	return sum
}

func (s *Scorer) suggestions(
	in domintent.QueryIntent, rw query.RewrittenQuery, scored []result.ScoredResult,
) result.Suggestions {
	sug := result.Suggestions{SuggestedQueries: []string{}, MissingContext: []string{}}
	top := 0.0
	if len(scored) > 0 {
		top = scored[0].FinalScore
	}
	if top >= 0.6 && len(scored) >= 3 {
		return sug
	}
	sug.NeedsRefinement = true

	base := strings.TrimSpace(rw.Rewritten)
	if base == "" {
		base = strings.TrimSpace(rw.Original)
	}
	if base == "" {
		return sug
	}
	if !in.HasLocations() {
		sug.MissingContext = append(sug.MissingContext, "location")
		sug.SuggestedQueries = append(sug.SuggestedQueries, base+" in your target city")
	}
	if len(in.Entities.TimeReferences) == 0 && in.Confidence.TemporalRelevance < 0.3 {
		sug.MissingContext = append(sug.MissingContext, "timeframe")
		sug.SuggestedQueries = append(sug.SuggestedQueries, base+" "+strconv.Itoa(s.now().Year()))
	}
	if len(rw.SearchTerms) > 8 {
		sug.SuggestedQueries = append(sug.SuggestedQueries, strings.Join(rw.SearchTerms[:5], " "))
	}
	if in.Primary == domintent.Recommendation && len(in.Entities.Topics) > 0 {
		sug.SuggestedQueries = append(sug.SuggestedQueries, "top rated "+strings.Join(in.Entities.Topics, " ")+" reviews")
	}
	sug.SuggestedQueries = text.Unique(sug.SuggestedQueries)
	return sug
}

func wordSet(s string) map[string]struct{} {
	words := text.Words(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func lowerAll(items []string) []string {
	for i := range items {
		items[i] = strings.ToLower(items[i])
	}
	return items
}

func mentionsLocation(body string, locations []string) bool {
	for _, l := range locations {
		if text.ContainsPhrase(body, l) {
			return true
		}
	}
	return false
}
