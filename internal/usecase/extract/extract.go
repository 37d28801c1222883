// Package extract pulls locations, time references, topics and comparison
// fragments out of free text using pattern matching.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

// MaxTopics caps the topic keywords returned per query.
const MaxTopics = 5

// TemporalCategory groups time references by how urgent they are.
type TemporalCategory string

// Temporal categories, in the order they are evaluated.
const (
	Immediate    TemporalCategory = "immediate"
	Recent       TemporalCategory = "recent"
	Future       TemporalCategory = "future"
	SpecificDate TemporalCategory = "specific_date"
)

var temporalPatterns = []struct {
	category TemporalCategory
	re       *regexp.Regexp
}{
	{Immediate, regexp.MustCompile(`(?i)\b(right now|now|today|tonight|currently|current|at the moment)\b`)},
	{Recent, regexp.MustCompile(`(?i)\b(latest|recent|recently|newest|(?:this|past|last) (?:week|month|year))\b`)},
	{Future, regexp.MustCompile(`(?i)\b(tomorrow|upcoming|soon|next (?:week|month|year|spring|summer|fall|winter))\b`)},
	{SpecificDate, regexp.MustCompile(
		`(?i)\b((?:19|20)\d{2}|january|february|march|april|june|july|august|september|october|november|december|` +
			`monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)},
}

// locationPhrase matches a preposition followed by one or more capitalized words.
var locationPhrase = regexp.MustCompile(`\b(?i:in|to|near|from|at|around|of|for)\s+([A-Z][A-Za-z.'-]*(?:\s+[A-Z][A-Za-z.'-]*)*)`)

var comparisonSplit = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|compared (?:to|with)|or|better than)\s+`)

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// defaultCities is the gazetteer used to spot lowercase or preposition-less city mentions.
var defaultCities = []string{
	"Atlanta", "Austin", "Boston", "Charlotte", "Chicago", "Dallas", "Denver", "Detroit",
	"Houston", "Las Vegas", "Los Angeles", "Miami", "Minneapolis", "Nashville", "New York",
	"New York City", "Orlando", "Philadelphia", "Phoenix", "Pittsburgh", "Portland",
	"Raleigh", "Sacramento", "Salt Lake City", "San Antonio", "San Diego", "San Francisco",
	"San Jose", "Seattle", "Tampa", "Washington", "London", "Toronto", "Vancouver",
	"Berlin", "Amsterdam", "Lisbon", "Dublin", "Sydney", "Melbourne",
}

// notLocations are capitalized words the location pattern must not report.
var notLocations = map[string]struct{}{
	"i": {}, "the": {}, "a": {}, "an": {}, "my": {}, "me": {}, "it": {}, "this": {},
	"today": {}, "tomorrow": {}, "tonight": {}, "now": {},
}

// genericWords never become topics on their own.
var genericWords = map[string]struct{}{
	"best": {}, "top": {}, "good": {}, "great": {}, "latest": {}, "current": {},
	"currently": {}, "recent": {}, "recently": {}, "now": {}, "today": {}, "tonight": {},
	"tomorrow": {}, "new": {}, "really": {}, "much": {}, "many": {}, "more": {},
	"most": {}, "find": {}, "need": {}, "looking": {}, "thinking": {}, "help": {},
	"better": {}, "compare": {}, "compared": {}, "comparison": {},
}

// comparisonLead words are trimmed from the front of comparison fragments.
var comparisonLead = map[string]struct{}{
	"which": {}, "is": {}, "better": {}, "compare": {}, "comparing": {}, "between": {},
	"should": {}, "i": {}, "move": {}, "live": {}, "choose": {}, "the": {}, "to": {},
	"in": {}, "a": {}, "it": {}, "what's": {}, "whats": {}, "what": {}, "difference": {},
}

// Temporal holds the time references found in a query.
type Temporal struct {
	References []string
	Categories []TemporalCategory
}

// Has reports whether category c was detected.
func (t Temporal) Has(c TemporalCategory) bool {
	for _, got := range t.Categories {
		if got == c {
			return true
		}
	}
	return false
}

// Result is everything the extractor found in one text.
type Result struct {
	Locations   []string
	Temporal    Temporal
	Topics      []string
	Comparisons []string
}

// Extractor runs the pattern-based extraction. The zero value is not usable; call New.
type Extractor struct {
	cities   map[string]string
	cityExpr *regexp.Regexp
}

// New creates an extractor. cities extends the built-in gazetteer.
func New(cities ...string) *Extractor {
	all := append(append([]string(nil), defaultCities...), cities...)
	// longest first so "New York City" wins over "New York"
	sort.SliceStable(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })

	canon := make(map[string]string, len(all))
	quoted := make([]string, 0, len(all))
	for _, c := range all {
		key := strings.ToLower(c)
		if _, dup := canon[key]; dup {
			continue
		}
		canon[key] = c
		quoted = append(quoted, regexp.QuoteMeta(key))
	}
	return &Extractor{
		cities:   canon,
		cityExpr: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Extract runs every extractor over s.
func (e *Extractor) Extract(s string) Result {
	return Result{
		Locations:   e.Locations(s),
		Temporal:    Temporals(s),
		Topics:      Topics(s),
		Comparisons: Comparisons(s),
	}
}

type hit struct {
	pos  int
	name string
}

// Locations returns place names in order of first appearance, deduplicated case-insensitively.
func (e *Extractor) Locations(s string) []string {
	var hits []hit
	for _, m := range locationPhrase.FindAllStringSubmatchIndex(s, -1) {
		name := strings.TrimRight(s[m[2]:m[3]], ".'-")
		if _, skip := notLocations[strings.ToLower(name)]; skip || name == "" {
			continue
		}
		if len(Temporals(name).Categories) > 0 {
			continue
		}
		if c, ok := e.cities[strings.ToLower(name)]; ok {
			name = c
		}
		hits = append(hits, hit{pos: m[2], name: name})
	}
	for _, m := range e.cityExpr.FindAllStringIndex(s, -1) {
		hits = append(hits, hit{pos: m[0], name: e.cities[strings.ToLower(s[m[0]:m[1]])]})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		key := strings.ToLower(h.name)
		if _, ok := seen[key]; ok {
			continue
		}
		if covered(key, seen) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h.name)
	}
	return out
}

// covered reports whether key is a word-bounded part of an already reported location.
func covered(key string, seen map[string]struct{}) bool {
	for k := range seen {
		if text.ContainsPhrase(k, key) {
			return true
		}
	}
	return false
}

// Temporals finds time references and the categories they fall into.
func Temporals(s string) Temporal {
	var t Temporal
	for _, p := range temporalPatterns {
		found := p.re.FindAllString(s, -1)
		if len(found) == 0 {
			continue
		}
		t.Categories = append(t.Categories, p.category)
		for _, f := range found {
			t.References = append(t.References, strings.ToLower(f))
		}
	}
	t.References = text.Unique(t.References)
	if t.References == nil {
		t.References = []string{}
	}
	return t
}

// HasYear reports whether s mentions a four-digit year.
func HasYear(s string) bool {
	return yearPattern.MatchString(s)
}

// Topics returns up to MaxTopics content words ranked by frequency, then by first appearance.
func Topics(s string) []string {
	counts := map[string]int{}
	var order []string
	for _, w := range text.ContentWords(s) {
		if _, generic := genericWords[w]; generic || isNumber(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > MaxTopics {
		order = order[:MaxTopics]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// Comparisons splits s on comparison connectives. It returns nil unless at least two
// non-empty fragments remain.
func Comparisons(s string) []string {
	parts := comparisonSplit.Split(s, -1)
	if len(parts) < 2 {
		low := strings.ToLower(strings.TrimSpace(s))
		if !strings.HasPrefix(low, "compare ") && !strings.Contains(low, " between ") {
			return nil
		}
		parts = strings.Split(s, " and ")
		if len(parts) < 2 {
			return nil
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := cleanFragment(p); f != "" {
			out = append(out, f)
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

func cleanFragment(p string) string {
	words := strings.Fields(p)
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[0], "?!.,;:"))
		if _, lead := comparisonLead[w]; !lead {
			break
		}
		words = words[1:]
	}
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[len(words)-1], "?!.,;:"))
		if w != "" && !text.IsStopWord(w) {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Trim(strings.Join(words, " "), "?!.,;: ")
}

func isNumber(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return w != ""
}
