// Package answer describes a language-model reply grounded on an assembled context.
package answer

// Answer is the model's reply plus token accounting.
type Answer struct {
	Text             string   `json:"text"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	Sources          []string `json:"sources"`
}
