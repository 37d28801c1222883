package assemble

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
)

// target is the output text field a block is written into.
type target int

const (
	toProfile target = iota
	toMemory
	toWeb
	toConversation
)

// Block names, also reported in ContextSources and PrioritizedSections.
const (
	BlockQuery       = "query"
	BlockProfile     = "user_profile"
	BlockPreferences = "recent_preferences"
	BlockWeb         = "web_results"
	BlockFacts       = "memory_facts"
	BlockHistory     = "conversation_history"
	BlockSummary     = "conversation_summary"
	BlockComparisons = "comparisons"
	BlockGeneral     = "general_memory"
)

type block struct {
	name     string
	priority float64
	target   target
	content  string
}

// EstimateTokens approximates model tokens as ceil(characters / 4).
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

func queryBlock(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	return "User query: " + q
}

func profileBlock(uc usercontext.Context, prefs *usercontext.Preferences) string {
	var lines []string
	if uc.CurrentLocation != "" {
		lines = append(lines, "Current location: "+uc.CurrentLocation)
	}
	if len(uc.TargetCities) > 0 {
		lines = append(lines, "Target cities: "+strings.Join(uc.TargetCities, ", "))
	}
	if uc.CareerField != "" {
		lines = append(lines, "Career field: "+uc.CareerField)
	}
	if prefs != nil {
		if prefs.Budget != "" {
			lines = append(lines, "Budget: "+prefs.Budget)
		}
		if prefs.Lifestyle != "" {
			lines = append(lines, "Lifestyle: "+prefs.Lifestyle)
		}
		if prefs.Family != "" {
			lines = append(lines, "Family: "+prefs.Family)
		}
	}
	return strings.Join(lines, "\n")
}

func preferencesBlock(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := []string{"Preferences:"}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, prefs[k]))
	}
	return strings.Join(lines, "\n")
}

// webBlock renders results at the verbosity of the compression tier.
func webBlock(f *result.FilteredResults, level assembled.CompressionLevel) (string, int) {
	if f == nil || len(f.Results) == 0 {
		return "", 0
	}
	limit := webLimit(level)
	rs := f.Results
	if len(rs) > limit {
		rs = rs[:limit]
	}
	lines := make([]string, 0, len(rs)*2)
	for i, r := range rs {
		switch level {
		case assembled.CompressionNone:
			lines = append(lines,
				fmt.Sprintf("%d. %s (%s, score %.2f)", i+1, r.Title, r.Domain, r.FinalScore),
				"   "+r.Snippet,
				"   "+r.Link)
		case assembled.CompressionModerate:
			lines = append(lines,
				fmt.Sprintf("%d. %s (%s)", i+1, r.Title, r.Domain),
				"   "+clip(r.Snippet, 100))
		case assembled.CompressionAggressive:
			lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, r.Title, r.Domain))
		default:
			lines = append(lines,
				fmt.Sprintf("%d. %s (%s, score %.2f)", i+1, r.Title, r.Domain, r.FinalScore),
				"   "+r.Snippet)
		}
	}
	return "Web results:\n" + strings.Join(lines, "\n"), len(rs)
}

func webLimit(level assembled.CompressionLevel) int {
	switch level {
	case assembled.CompressionNone:
		return 8
	case assembled.CompressionModerate:
		return 5
	case assembled.CompressionAggressive:
		return 3
	default:
		return 6
	}
}

func factsBlock(facts, focus []string) string {
	if len(facts) == 0 {
		return ""
	}
	ordered := make([]string, 0, len(facts))
	var rest []string
	for _, f := range facts {
		if matchesFocus(f, focus) {
			ordered = append(ordered, f)
		} else {
			rest = append(rest, f)
		}
	}
	ordered = append(ordered, rest...)
	lines := []string{"Known facts:"}
	for _, f := range ordered {
		lines = append(lines, "- "+f)
	}
	return strings.Join(lines, "\n")
}

func historyBlock(turns []usercontext.Turn, keep int) string {
	if len(turns) == 0 {
		return ""
	}
	if len(turns) > keep {
		turns = turns[len(turns)-keep:]
	}
	lines := []string{"Recent conversation:"}
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}

func summaryBlock(s *usercontext.ConversationSummary) string {
	if s == nil || (s.Summary == "" && len(s.KeyTopics) == 0) {
		return ""
	}
	var lines []string
	if s.Summary != "" {
		lines = append(lines, "Conversation summary: "+s.Summary)
	}
	if len(s.KeyTopics) > 0 {
		lines = append(lines, "Key topics: "+strings.Join(s.KeyTopics, ", "))
	}
	return strings.Join(lines, "\n")
}

func comparisonsBlock(in domintent.QueryIntent) string {
	if len(in.Entities.Comparisons) < 2 {
		return ""
	}
	return "Comparing: " + strings.Join(in.Entities.Comparisons, " vs ")
}

func generalBlock(s *usercontext.ConversationSummary) string {
	if s == nil {
		return ""
	}
	var lines []string
	if len(s.LocationContext) > 0 {
		lines = append(lines, "Places discussed: "+strings.Join(s.LocationContext, ", "))
	}
	if len(s.UrgentQueries) > 0 {
		lines = append(lines, "Open questions: "+strings.Join(s.UrgentQueries, "; "))
	}
	return strings.Join(lines, "\n")
}

func matchesFocus(s string, focus []string) bool {
	for _, f := range focus {
		if f != "" && text.ContainsPhrase(s, f) {
			return true
		}
	}
	return false
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
