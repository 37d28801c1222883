// Package text holds the tokenization rules shared by every pipeline stage.
// All stages must agree on what a "word" is, otherwise term overlap and
// fingerprint similarity drift apart.
package text

import (
	"strings"
	"unicode"
)

// stopWords are dropped from topic extraction, search terms and fingerprints.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {},
	"but": {}, "by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "how": {}, "i": {},
	"i'm": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"just": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"should": {}, "so": {}, "some": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"to": {}, "us": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "why": {}, "will": {}, "with": {}, "would": {},
	"you": {}, "your": {}, "about": {}, "any": {}, "tell": {}, "please": {}, "know": {},
	"want": {}, "like": {}, "get": {}, "there's": {}, "what's": {}, "vs": {}, "versus": {},
}

// IsStopWord reports whether w (lowercase) carries no topical signal.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Words splits s into lowercase tokens of letters, digits and apostrophes.
// Order is preserved, duplicates are kept.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// ContentWords returns Words(s) without stop words and one-letter tokens.
func ContentWords(s string) []string {
	words := Words(s)
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 || IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Unique drops repeated entries, keeping first occurrences in order.
func Unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Padded lowercases s, replaces punctuation with spaces and wraps the result
// in single spaces so phrase lookups can match on word boundaries:
// strings.Contains(Padded(q), " "+phrase+" ").
func Padded(s string) string {
	return " " + strings.Join(Words(s), " ") + " "
}

// ContainsPhrase reports whether phrase occurs in s on word boundaries (case-insensitive).
func ContainsPhrase(s, phrase string) bool {
	return strings.Contains(Padded(s), Padded(phrase))
}

// Normalize collapses whitespace and lowercases a query for exact-match comparison.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
