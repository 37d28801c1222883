// Package intent classifies raw queries into a structured intent with confidence
// scores and a recommended search strategy.
package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/extract"
)

// Classifier turns a query and optional user context into a QueryIntent.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	cfg Config
	ext *extract.Extractor
	now func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithConfig replaces the keyword banks and thresholds.
func WithConfig(cfg Config) Option {
	return func(c *Classifier) { c.cfg = cfg }
}

// WithExtractor sets the entity extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(c *Classifier) { c.ext = e }
}

// WithClock sets the time source used for recent-search detection.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New creates a classifier with DefaultConfig.
func New(opts ...Option) *Classifier {
	c := &Classifier{cfg: DefaultConfig(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	if c.ext == nil {
		c.ext = extract.New()
	}
	return c
}

// Extractor exposes the extractor so later stages agree on entity detection.
func (c *Classifier) Extractor() *extract.Extractor { return c.ext }

// Classify never fails: empty or unmatched input yields the conversational default.
func (c *Classifier) Classify(query string, uc *usercontext.Context) domintent.QueryIntent {
	if strings.TrimSpace(query) == "" {
		d := domintent.Default()
		d.Reasoning = []string{"empty query: conversational default"}
		return d
	}
	user := usercontext.OrEmpty(uc)
	ex := c.ext.Extract(query)

	var reasons []string
	primary, why := c.primary(query, ex)
	reasons = append(reasons, why...)

	temporal, why := c.temporalRelevance(query, primary, ex)
	reasons = append(reasons, why...)
	location, why := c.locationRelevance(query, ex, user)
	reasons = append(reasons, why...)
	personal, why := c.personalRelevance(query, user)
	reasons = append(reasons, why...)
	needs, why := c.needsWebSearch(query, primary, temporal, ex, user)
	reasons = append(reasons, why...)

	priority := c.priority(needs)
	qt := queryType(primary, temporal, location, ex)
	reasons = append(reasons, fmt.Sprintf("search priority %s, query type %s", priority, qt))

	return domintent.QueryIntent{
		Primary: primary,
		Confidence: domintent.Confidence{
			NeedsWebSearch:    needs,
			TemporalRelevance: temporal,
			LocationRelevance: location,
			PersonalRelevance: personal,
		},
		Entities: domintent.Entities{
			Locations:      nonNil(ex.Locations),
			TimeReferences: nonNil(ex.Temporal.References),
			Topics:         nonNil(ex.Topics),
			Comparisons:    nonNil(ex.Comparisons),
		},
		SearchStrategy: domintent.SearchStrategy{
			Priority:        priority,
			QueryType:       qt,
			ExpectedSources: append([]domintent.SourceType(nil), expectedSources[qt]...),
		},
		Reasoning: reasons,
	}
}

func (c *Classifier) primary(query string, ex extract.Result) (domintent.Primary, []string) {
	best, bestHits := domintent.Conversational, 0
	for _, cat := range c.cfg.CategoryOrder {
		hits := countPhrases(query, c.cfg.Keywords[cat])
		if cat == domintent.Comparison && len(ex.Comparisons) > 0 {
			hits++
		}
		if hits > bestHits {
			best, bestHits = cat, hits
		}
	}

	var reasons []string
	if bestHits == 0 {
		reasons = append(reasons, "no category keywords matched: conversational")
	} else {
		reasons = append(reasons, fmt.Sprintf("primary intent %s: %d keyword hit(s)", best, bestHits))
	}
	if p, ok := firstPhrase(query, c.cfg.RelocationPhrases); ok && best != domintent.Planning {
		best = domintent.Planning
		reasons = append(reasons, fmt.Sprintf("relocation phrase %q: planning", p))
	}
	return best, reasons
}

func (c *Classifier) temporalRelevance(
	query string, primary domintent.Primary, ex extract.Result,
) (float64, []string) {
	var score float64
	for _, cat := range ex.Temporal.Categories {
		if b := c.cfg.TemporalBase[cat]; b > score {
			score = b
		}
	}
	var reasons []string
	if score > 0 {
		reasons = append(reasons, fmt.Sprintf("time references %v", ex.Temporal.References))
		if primary == domintent.Status {
			score += 0.1
		}
		if len(ex.Temporal.Categories) >= 2 {
			score += 0.1
		}
	}
	if p, ok := firstPhrase(query, c.cfg.TemporalTopics); ok {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("time-sensitive topic %q", p))
	}
	score = domain.Clamp01(score)
	if score > 0 {
		reasons = append(reasons, fmt.Sprintf("temporal relevance %.2f", score))
	}
	return score, reasons
}

func (c *Classifier) locationRelevance(
	query string, ex extract.Result, user usercontext.Context,
) (float64, []string) {
	var score float64
	var reasons []string
	n := len(ex.Locations)
	if n > 0 {
		score = 0.6 + 0.1*float64(n-1)
		reasons = append(reasons, fmt.Sprintf("locations %v", ex.Locations))
	}
	if p, ok := firstPhrase(query, c.cfg.LocationKeywords); ok {
		if n > 0 {
			score += 0.2
		} else {
			score = 0.3
		}
		reasons = append(reasons, fmt.Sprintf("location keyword %q", p))
	}
	if city, ok := knownCity(query, ex.Locations, user); ok {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("previously discussed city %q", city))
	}
	return domain.Clamp01(score), reasons
}

func (c *Classifier) personalRelevance(query string, user usercontext.Context) (float64, []string) {
	var score float64
	var reasons []string
	words := text.Words(query)
	if containsAny(words, c.cfg.PersonalPronouns) {
		score += 0.4
		reasons = append(reasons, "first-person phrasing")
	}
	if preferenceOverlap(query, user.Preferences) {
		score += 0.2
		reasons = append(reasons, "mentions a stored preference")
	}
	if user.CareerField != "" {
		if text.ContainsPhrase(query, user.CareerField) || containsAny(words, c.cfg.CareerKeywords) {
			score += 0.2
			reasons = append(reasons, fmt.Sprintf("career context %q", user.CareerField))
		}
	}
	if len(user.ConversationHistory) > 0 {
		score += 0.1
	}
	if _, ok := firstPhrase(query, c.cfg.RelocationPhrases); ok {
		score += 0.2
	}
	score = domain.Clamp01(score)
	if score > 0 {
		reasons = append(reasons, fmt.Sprintf("personal relevance %.2f", score))
	}
	return score, reasons
}

func (c *Classifier) needsWebSearch(
	query string, primary domintent.Primary, temporal float64,
	ex extract.Result, user usercontext.Context,
) (float64, []string) {
	score := c.cfg.SearchBase[primary] + 0.3*temporal
	var reasons []string
	if len(ex.Locations) > 0 {
		score += 0.2
	}
	if p, ok := firstPhrase(query, c.cfg.HighPriorityTopics); ok {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("high-priority topic %q", p))
	}
	if !user.LastSearchAt.IsZero() {
		if since := c.now().Sub(user.LastSearchAt); since >= 0 && since < c.cfg.RecentSearchWindow {
			score -= 0.1
			reasons = append(reasons, "searched moments ago")
		}
	}
	score = domain.Clamp01(score)
	reasons = append(reasons, fmt.Sprintf("web search need %.2f", score))
	return score, reasons
}

func (c *Classifier) priority(needs float64) domintent.Priority {
	switch {
	case needs >= c.cfg.HighThreshold:
		return domintent.PriorityHigh
	case needs >= c.cfg.MediumThreshold:
		return domintent.PriorityMedium
	case needs >= c.cfg.LowThreshold:
		return domintent.PriorityLow
	default:
		return domintent.PrioritySkip
	}
}

func queryType(primary domintent.Primary, temporal, location float64, ex extract.Result) domintent.QueryType {
	switch {
	case primary == domintent.Comparison || len(ex.Comparisons) > 0:
		return domintent.QueryComparative
	case temporal >= 0.5 && temporal >= location:
		return domintent.QueryTemporal
	case location >= 0.5:
		return domintent.QueryLocal
	case primary == domintent.Factual:
		return domintent.QueryFactual
	default:
		return domintent.QueryExploratory
	}
}

func countPhrases(query string, phrases []string) int {
	padded := text.Padded(query)
	n := 0
	for _, p := range phrases {
		if strings.Contains(padded, text.Padded(p)) {
			n++
		}
	}
	return n
}

func firstPhrase(query string, phrases []string) (string, bool) {
	padded := text.Padded(query)
	for _, p := range phrases {
		if strings.Contains(padded, text.Padded(p)) {
			return p, true
		}
	}
	return "", false
}

func containsAny(words, set []string) bool {
	for _, w := range words {
		for _, s := range set {
			if w == s {
				return true
			}
		}
	}
	return false
}

// knownCity finds a target or current city of the user that the query mentions.
func knownCity(query string, locations []string, user usercontext.Context) (string, bool) {
	candidates := append([]string{user.CurrentLocation}, user.TargetCities...)
	for _, city := range candidates {
		if city == "" {
			continue
		}
		for _, loc := range locations {
			if strings.EqualFold(loc, city) {
				return city, true
			}
		}
		if text.ContainsPhrase(query, city) {
			return city, true
		}
	}
	return "", false
}

func preferenceOverlap(query string, prefs map[string]string) bool {
	if len(prefs) == 0 {
		return false
	}
	words := text.ContentWords(query)
	for _, v := range prefs {
		if containsAny(words, text.ContentWords(v)) {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
