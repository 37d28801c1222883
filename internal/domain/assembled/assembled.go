// Package assembled describes the token-budgeted context bundle handed to the language model.
package assembled

import "fmt"

// DefaultMaxTokens is the budget used when Options.MaxTokens is unset.
const DefaultMaxTokens = 4000

// CompressionLevel selects how aggressively sections are condensed.
type CompressionLevel string

// Compression levels.
const (
	CompressionNone       CompressionLevel = "none"
	CompressionLight      CompressionLevel = "light"
	CompressionModerate   CompressionLevel = "moderate"
	CompressionAggressive CompressionLevel = "aggressive"
)

// IsValid checks if the level is one of the supported values.
func (c CompressionLevel) IsValid() bool {
	switch c {
	case CompressionNone, CompressionLight, CompressionModerate, CompressionAggressive:
		return true
	}
	return false
}

// Options configure a single assembly.
type Options struct {
	MaxTokens         int              `json:"max_tokens"`
	CompressionLevel  CompressionLevel `json:"compression_level"`
	IncludeWebResults bool             `json:"include_web_results"`
	FocusAreas        []string         `json:"focus_areas"`
}

// DefaultOptions returns a 4000-token, light-compression configuration with web results.
func DefaultOptions() Options {
	return Options{
		MaxTokens:         DefaultMaxTokens,
		CompressionLevel:  CompressionLight,
		IncludeWebResults: true,
	}
}

// Normalize fills zero values with defaults and rejects unknown compression levels.
func (o Options) Normalize() (Options, error) {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.CompressionLevel == "" {
		o.CompressionLevel = CompressionLight
	}
	if !o.CompressionLevel.IsValid() {
		return o, fmt.Errorf("invalid compression level %q", o.CompressionLevel)
	}
	return o, nil
}

// Section records how much of the budget a packed block consumed.
type Section struct {
	Name       string  `json:"name"`
	Priority   float64 `json:"priority"`
	TokenCount int     `json:"token_count"`
}

// Context is the assembled bundle, rebuilt per request.
type Context struct {
	UserProfile         string    `json:"user_profile"`
	RelevantMemory      string    `json:"relevant_memory"`
	WebResults          string    `json:"web_results"`
	ConversationContext string    `json:"conversation_context"`
	TotalTokens         int       `json:"total_tokens"`
	CompressionRatio    float64   `json:"compression_ratio"`
	ContextSources      []string  `json:"context_sources"`
	ConfidenceScore     float64   `json:"confidence_score"`
	PrioritizedSections []Section `json:"prioritized_sections"`
	Optimizations       []string  `json:"optimizations"`
	Warnings            []string  `json:"warnings"`
}
