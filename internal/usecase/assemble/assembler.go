// Package assemble packs user profile, memory, web results and conversation
// into a single token-budgeted context for the language model.
package assemble

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	domintent "github.com/sou1nonly/relocation-chatbot/internal/domain/intent"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/usercontext"
)

// Config holds block priorities and packing thresholds.
type Config struct {
	Priorities map[string]float64
	// MinCompressionRatio is the smallest fraction of a block worth keeping compressed.
	MinCompressionRatio float64
	NearLimitRatio      float64
	MaxHistoryTurns     int
	// NegligibleTokens marks a block too small to count as present.
	NegligibleTokens int
}

// DefaultConfig orders blocks query > profile > recent preferences > web results >
// facts > history > summaries > comparisons > general memory.
func DefaultConfig() Config {
	return Config{
		Priorities: map[string]float64{
			BlockQuery:       1.0,
			BlockProfile:     0.9,
			BlockPreferences: 0.85,
			BlockWeb:         0.8,
			BlockFacts:       0.7,
			BlockHistory:     0.6,
			BlockSummary:     0.5,
			BlockComparisons: 0.4,
			BlockGeneral:     0.3,
		},
		MinCompressionRatio: 0.3,
		NearLimitRatio:      0.95,
		MaxHistoryTurns:     6,
		NegligibleTokens:    10,
	}
}

// Assembler is stateless and safe for concurrent use.
type Assembler struct {
	cfg Config
}

// New creates an assembler. Missing priorities are filled from DefaultConfig.
func New(cfg Config) *Assembler {
	def := DefaultConfig()
	if cfg.Priorities == nil {
		cfg.Priorities = def.Priorities
	}
	if cfg.MinCompressionRatio <= 0 {
		cfg.MinCompressionRatio = def.MinCompressionRatio
	}
	if cfg.NearLimitRatio <= 0 {
		cfg.NearLimitRatio = def.NearLimitRatio
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = def.MaxHistoryTurns
	}
	if cfg.NegligibleTokens <= 0 {
		cfg.NegligibleTokens = def.NegligibleTokens
	}
	return &Assembler{cfg: cfg}
}

// Assemble never fails. Identical inputs always produce identical output.
func (a *Assembler) Assemble(
	q string,
	in domintent.QueryIntent,
	uc *usercontext.Context,
	mem *usercontext.Memory,
	web *result.FilteredResults,
	opts assembled.Options,
) assembled.Context {
	out := assembled.Context{
		ContextSources:      []string{},
		PrioritizedSections: []assembled.Section{},
		Optimizations:       []string{},
		Warnings:            []string{},
	}
	opts, err := opts.Normalize()
	if err != nil {
		opts.CompressionLevel = assembled.CompressionLight
		out.Warnings = append(out.Warnings, err.Error()+", using light")
	}

	user := usercontext.OrEmpty(uc)
	memory := usercontext.Memory{}
	if mem != nil {
		memory = *mem
	}

	blocks := []block{
		{name: BlockQuery, target: toConversation, content: queryBlock(q)},
		{name: BlockProfile, target: toProfile, content: profileBlock(user, memory.Preferences)},
		{name: BlockPreferences, target: toProfile, content: preferencesBlock(user.Preferences)},
		{name: BlockFacts, target: toMemory, content: factsBlock(memory.Facts, opts.FocusAreas)},
		{name: BlockHistory, target: toConversation, content: historyBlock(user.ConversationHistory, a.cfg.MaxHistoryTurns)},
		{name: BlockSummary, target: toMemory, content: summaryBlock(memory.Summary)},
		{name: BlockComparisons, target: toConversation, content: comparisonsBlock(in)},
		{name: BlockGeneral, target: toMemory, content: generalBlock(memory.Summary)},
	}
	if opts.IncludeWebResults {
		content, n := webBlock(web, opts.CompressionLevel)
		if n > 0 {
			blocks = append(blocks, block{name: BlockWeb, target: toWeb, content: content})
			total := 0
			if web != nil {
				total = len(web.Results)
			}
			if n < total {
				out.Optimizations = append(out.Optimizations,
					fmt.Sprintf("web results trimmed to %d of %d (%s)", n, total, opts.CompressionLevel))
			}
		}
	}
	for i := range blocks {
		blocks[i].priority = a.cfg.Priorities[blocks[i].name]
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].priority > blocks[j].priority })

	texts := map[target][]string{}
	tokens := map[string]int{}
	remaining := opts.MaxTokens
	original := 0
	squeezed := false

	for _, b := range blocks {
		if b.content == "" {
			continue
		}
		cost := EstimateTokens(b.content)
		original += cost
		content := b.content

		if cost > remaining {
			ratio := float64(remaining) / float64(cost)
			if opts.CompressionLevel == assembled.CompressionNone || ratio < a.cfg.MinCompressionRatio {
				squeezed = true
				out.Optimizations = append(out.Optimizations, "dropped "+b.name)
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s dropped: over token budget", b.name))
				continue
			}
			content = Compress(b.content, remaining)
			if content == "" || EstimateTokens(content) > remaining {
				squeezed = true
				out.Optimizations = append(out.Optimizations, "dropped "+b.name)
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s dropped: over token budget", b.name))
				continue
			}
			squeezed = true
			out.Optimizations = append(out.Optimizations,
				fmt.Sprintf("compressed %s from %d to %d tokens", b.name, cost, EstimateTokens(content)))
			cost = EstimateTokens(content)
		}

		remaining -= cost
		out.TotalTokens += cost
		tokens[b.name] = cost
		texts[b.target] = append(texts[b.target], content)
		out.ContextSources = append(out.ContextSources, b.name)
		out.PrioritizedSections = append(out.PrioritizedSections, assembled.Section{
			Name: b.name, Priority: b.priority, TokenCount: cost,
		})
	}

	out.UserProfile = strings.Join(texts[toProfile], "\n\n")
	out.RelevantMemory = strings.Join(texts[toMemory], "\n\n")
	out.WebResults = strings.Join(texts[toWeb], "\n\n")
	out.ConversationContext = strings.Join(texts[toConversation], "\n\n")

	out.CompressionRatio = 1
	if original > 0 {
		out.CompressionRatio = domain.Clamp01(float64(out.TotalTokens) / float64(original))
	}
	out.ConfidenceScore = a.confidence(tokens, in)
	out.Warnings = append(out.Warnings, a.warnings(out, tokens, opts, squeezed)...)
	return out
}

func (a *Assembler) confidence(tokens map[string]int, in domintent.QueryIntent) float64 {
	present := func(names ...string) bool {
		for _, n := range names {
			if tokens[n] >= a.cfg.NegligibleTokens {
				return true
			}
		}
		return false
	}
	c := 0.3
	if present(BlockProfile, BlockPreferences) {
		c += 0.2 + 0.1*in.Confidence.PersonalRelevance
	}
	if present(BlockWeb) {
		c += 0.25 + 0.1*in.Confidence.NeedsWebSearch
	}
	if present(BlockFacts, BlockSummary, BlockGeneral) {
		c += 0.15
	}
	if present(BlockHistory) {
		c += 0.1
	}
	return domain.Clamp01(c)
}

func (a *Assembler) warnings(
	out assembled.Context, tokens map[string]int, opts assembled.Options, squeezed bool,
) []string {
	var w []string
	if squeezed || float64(out.TotalTokens) >= a.cfg.NearLimitRatio*float64(opts.MaxTokens) {
		w = append(w, fmt.Sprintf("context is near the token limit (%d/%d tokens)", out.TotalTokens, opts.MaxTokens))
	}
	if tokens[BlockWeb] == 0 {
		w = append(w, "no web results included")
	}
	if tokens[BlockProfile]+tokens[BlockPreferences] < a.cfg.NegligibleTokens {
		w = append(w, "user profile is minimal")
	}
	return w
}

// Compress keeps important lines (containing a colon, starting with a bullet,
// or shorter than 50 characters) and samples the rest evenly so the result
// fits in budget tokens. It returns "" when nothing fits.
func Compress(content string, budget int) string {
	if budget <= 0 {
		return ""
	}
	limit := budget * 4
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	lines := strings.Split(content, "\n")
	keep := make([]bool, len(lines))
	used := 0
	var others []int
	for i, l := range lines {
		if important(l) {
			keep[i] = true
			used += utf8.RuneCountInString(l) + 1
		} else {
			others = append(others, i)
		}
	}
	if len(others) > 0 && used < limit {
		avg := 0
		for _, i := range others {
			avg += utf8.RuneCountInString(lines[i]) + 1
		}
		avg /= len(others)
		slots := (limit - used) / max(avg, 1)
		if slots > 0 {
			stride := (len(others) + slots - 1) / slots
			for k := 0; k < len(others); k += stride {
				keep[others[k]] = true
			}
		}
	}

	var kept []string
	for i, l := range lines {
		if keep[i] {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		kept = lines[:1]
	}
	for len(kept) > 1 && utf8.RuneCountInString(strings.Join(kept, "\n")) > limit {
		kept = kept[:len(kept)-1]
	}
	res := strings.Join(kept, "\n")
	if utf8.RuneCountInString(res) > limit {
		res = string([]rune(res)[:limit])
	}
	return strings.TrimSpace(res)
}

func important(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	return strings.Contains(t, ":") ||
		strings.HasPrefix(t, "-") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "•") ||
		utf8.RuneCountInString(t) < 50
}
