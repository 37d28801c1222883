// Package usercontext enumerates everything the pipeline may know about the asking user.
// Absent fields default to neutral values: empty slices, zero times, empty strings.
package usercontext

import "time"

// Version is the current schema version of Context.
const Version = 1

// Turn is one message of recent conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context is the explicit, versioned user context passed across pipeline stages.
type Context struct {
	Version             int               `json:"version"`
	UserID              string            `json:"user_id,omitempty"`
	CurrentLocation     string            `json:"current_location,omitempty"`
	TargetCities        []string          `json:"target_cities,omitempty"`
	CareerField         string            `json:"career_field,omitempty"`
	Preferences         map[string]string `json:"preferences,omitempty"`
	ConversationHistory []Turn            `json:"conversation_history,omitempty"`
	LastSearchAt        time.Time         `json:"last_search_at,omitempty"`
}

// OrEmpty returns c, or a zero-value Context of the current version when c is nil.
func OrEmpty(c *Context) Context {
	if c == nil {
		return Context{Version: Version}
	}
	return *c
}

// Preferences is the long-term preference record held by the memory store.
type Preferences struct {
	CurrentCity  string            `json:"current_city,omitempty"`
	TargetCities []string          `json:"target_cities,omitempty"`
	CareerField  string            `json:"career_field,omitempty"`
	Budget       string            `json:"budget,omitempty"`
	Lifestyle    string            `json:"lifestyle,omitempty"`
	Family       string            `json:"family,omitempty"`
	Priorities   []string          `json:"priorities,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
}

// ConversationSummary is the rolling summary held by the memory store.
type ConversationSummary struct {
	Summary         string   `json:"summary"`
	KeyTopics       []string `json:"key_topics,omitempty"`
	UrgentQueries   []string `json:"urgent_queries,omitempty"`
	LocationContext []string `json:"location_context,omitempty"`
}

// Memory is the long-term memory bundle read by the context assembler.
type Memory struct {
	Preferences *Preferences         `json:"preferences,omitempty"`
	Summary     *ConversationSummary `json:"summary,omitempty"`
	Facts       []string             `json:"facts,omitempty"`
}

// Merge folds stored preferences into the request context without overriding
// values the caller supplied explicitly.
func (c Context) Merge(p *Preferences) Context {
	if p == nil {
		return c
	}
	if c.CurrentLocation == "" {
		c.CurrentLocation = p.CurrentCity
	}
	if len(c.TargetCities) == 0 && len(p.TargetCities) > 0 {
		c.TargetCities = append([]string(nil), p.TargetCities...)
	}
	if c.CareerField == "" {
		c.CareerField = p.CareerField
	}
	if len(p.Custom) > 0 || p.Budget != "" || p.Lifestyle != "" || p.Family != "" {
		merged := make(map[string]string, len(c.Preferences)+len(p.Custom)+3)
		for k, v := range p.Custom {
			merged[k] = v
		}
		if p.Budget != "" {
			merged["budget"] = p.Budget
		}
		if p.Lifestyle != "" {
			merged["lifestyle"] = p.Lifestyle
		}
		if p.Family != "" {
			merged["family"] = p.Family
		}
		for k, v := range c.Preferences {
			merged[k] = v
		}
		c.Preferences = merged
	}
	return c
}
