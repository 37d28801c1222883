// Package rewrite turns a classified query into a search-optimized string.
package rewrite

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/query"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
	"github.com/sou1nonly/relocation-chatbot/internal/usecase/extract"
)

// Rewriter is stateless and safe for concurrent use.
type Rewriter struct {
	cfg Config
	now func() time.Time
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithConfig replaces the rewriting vocabularies.
func WithConfig(cfg Config) Option {
	return func(r *Rewriter) { r.cfg = cfg }
}

// WithClock sets the time source for the year qualifier.
func WithClock(now func() time.Time) Option {
	return func(r *Rewriter) { r.now = now }
}

// New creates a rewriter with DefaultConfig.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{cfg: DefaultConfig(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.cfg.MaxLength <= 0 {
		r.cfg.MaxLength = query.MaxRewrittenLength
	}
	return r
}

// Rewrite never fails. An empty query yields an empty rewrite with zero confidence.
func (r *Rewriter) Rewrite(q string, in domintent.QueryIntent, uc *usercontext.Context) query.RewrittenQuery {
	user := usercontext.OrEmpty(uc)
	base := r.stripFiller(q)
	if base == "" {
		return query.RewrittenQuery{
			Original:    q,
			SearchTerms: []string{},
			Context:     []string{},
			Strategy:    query.Direct,
			Reasoning:   []string{"empty query: nothing to rewrite"},
		}
	}

	strategy := selectStrategy(in)
	reasons := []string{fmt.Sprintf("strategy %s", strategy)}

	var rewritten string
	var added int
	switch strategy {
	case query.Comparative:
		rewritten = comparative(base, in.Entities.Comparisons)
	case query.Contextual:
		rewritten, added = r.contextual(base, in, user)
	case query.Expanded:
		rewritten = r.expanded(base, in)
	default:
		rewritten = base
	}
	if rewritten != base {
		reasons = append(reasons, fmt.Sprintf("transformed %q", base))
	}

	rewritten, why := r.finalize(rewritten, in)
	reasons = append(reasons, why...)

	conf := Confidence(base, rewritten, added, strategy)
	truncated := truncate(rewritten, r.cfg.MaxLength)
	if truncated != rewritten {
		reasons = append(reasons, fmt.Sprintf("truncated to %d characters", r.cfg.MaxLength))
	}

	return query.RewrittenQuery{
		Original:    q,
		Rewritten:   truncated,
		SearchTerms: searchTerms(truncated),
		Context:     annotations(in, user),
		Strategy:    strategy,
		Confidence:  conf,
		Reasoning:   reasons,
	}
}

func selectStrategy(in domintent.QueryIntent) query.Strategy {
	switch {
	case len(in.Entities.Comparisons) >= 1:
		return query.Comparative
	case in.Confidence.LocationRelevance > 0.6 || in.Confidence.PersonalRelevance > 0.6:
		return query.Contextual
	case in.SearchStrategy.Priority == domintent.PriorityHigh:
		return query.Expanded
	default:
		return query.Direct
	}
}

// stripFiller removes leading conversational filler and trailing punctuation.
func (r *Rewriter) stripFiller(q string) string {
	s := strings.Join(strings.Fields(q), " ")
	for changed := true; changed; {
		changed = false
		low := strings.ToLower(s)
		for _, f := range r.cfg.Filler {
			if low == f {
				return ""
			}
			if strings.HasPrefix(low, f+" ") || strings.HasPrefix(low, f+",") {
				s = strings.TrimLeft(s[len(f):], " ,")
				changed = true
				break
			}
		}
	}
	return strings.TrimRight(s, "?!. ")
}

func (r *Rewriter) expanded(base string, in domintent.QueryIntent) string {
	parts := []string{base}
	current := base
	for _, b := range r.cfg.Buckets {
		if !mentionsAny(base, b.Triggers) {
			continue
		}
		n := 0
		for _, e := range b.Expansions {
			if n == r.cfg.MaxExpansions {
				break
			}
			if text.ContainsPhrase(current, e) {
				continue
			}
			parts = append(parts, e)
			current += " " + e
			n++
		}
	}
	if in.Confidence.TemporalRelevance >= 0.6 && !r.hasRecency(current) {
		parts = append(parts, "latest")
	}
	return strings.Join(parts, " ")
}

func (r *Rewriter) contextual(
	base string, in domintent.QueryIntent, user usercontext.Context,
) (string, int) {
	parts := []string{base}
	added := 0

	var cities []string
	for _, c := range user.TargetCities {
		if len(cities) == r.cfg.MaxTargetAdded {
			break
		}
		if c != "" && !text.ContainsPhrase(base, c) {
			cities = append(cities, c)
		}
	}
	added += len(cities)

	if in.Primary == domintent.Planning {
		switch {
		case len(cities) > 0:
			parts = append(parts, "for people moving to "+cities[0])
			cities = cities[1:]
		case len(in.Entities.Locations) == 0:
			parts = append(parts, "relocation guide")
		}
	}
	parts = append(parts, cities...)

	if user.CareerField != "" && !text.ContainsPhrase(base, user.CareerField) {
		parts = append(parts, "for "+user.CareerField+" professionals")
		added++
	}
	if f := r.cfg.Frameworks[in.Primary]; f != "" && !text.ContainsPhrase(base, f) {
		parts = append(parts, f)
	}
	return strings.Join(parts, " "), added
}

func comparative(base string, comps []string) string {
	switch len(comps) {
	case 0:
		return base + " comparison pros and cons"
	case 1:
		return comps[0] + " alternatives comparison pros and cons"
	default:
		return strings.Join(comps, " vs ") + " comparison pros and cons"
	}
}

// finalize adds the city and year qualifiers.
func (r *Rewriter) finalize(s string, in domintent.QueryIntent) (string, []string) {
	var reasons []string
	if in.HasLocations() && !text.ContainsPhrase(s, "city") {
		s += " city"
		reasons = append(reasons, "added city qualifier")
	}
	if in.Confidence.TemporalRelevance >= 0.7 && !extract.HasYear(s) && !r.hasRecency(s) {
		year := strconv.Itoa(r.now().Year())
		s += " " + year
		reasons = append(reasons, "added year "+year)
	}
	return s, reasons
}

func (r *Rewriter) hasRecency(s string) bool {
	return extract.HasYear(s) || mentionsAny(s, r.cfg.RecencyTokens)
}

// Confidence scores a rewrite from its expansion ratio, whether entities were
// added, and the strategy used. For a fixed original it never increases as the
// rewrite grows longer.
func Confidence(original, rewritten string, addedEntities int, strategy query.Strategy) float64 {
	origLen := utf8.RuneCountInString(original)
	if origLen == 0 {
		return 0
	}
	ratio := float64(utf8.RuneCountInString(rewritten)) / float64(origLen)

	c := 0.6
	switch {
	case ratio <= 1.5:
		c += 0.15
	case ratio <= 2:
		c += 0.1
	case ratio <= 3:
		c += 0.05
	}
	if addedEntities > 0 {
		c += 0.1
	}
	if strategy != query.Direct {
		c += 0.05
	}
	if ratio > 3 {
		c -= 0.15 * (ratio - 3)
	}
	if words := len(strings.Fields(rewritten)); words > 25 {
		c -= 0.02 * float64(words-25)
	}
	return domain.Clamp01(c)
}

// truncate cuts s to at most limit runes, preferring the last word boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

func searchTerms(s string) []string {
	terms := text.Unique(text.ContentWords(s))
	if len(terms) > query.MaxSearchTerms {
		terms = terms[:query.MaxSearchTerms]
	}
	return terms
}

func annotations(in domintent.QueryIntent, user usercontext.Context) []string {
	out := []string{"intent:" + string(in.Primary)}
	for _, l := range in.Entities.Locations {
		out = append(out, "location:"+l)
	}
	for _, t := range in.Entities.TimeReferences {
		out = append(out, "time:"+t)
	}
	for _, c := range user.TargetCities {
		out = append(out, "target:"+c)
	}
	if user.CareerField != "" {
		out = append(out, "career:"+user.CareerField)
	}
	return out
}

func mentionsAny(s string, phrases []string) bool {
	padded := text.Padded(s)
	for _, p := range phrases {
		if strings.Contains(padded, text.Padded(p)) {
			return true
		}
	}
	return false
}
