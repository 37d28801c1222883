// Package openai answers relocation questions through an OpenAI-compatible
// chat-completions API, grounded on an assembled context.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/answer"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/metrics"
)

// Defaults for Config.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.3
)

const systemPreamble = "You are a relocation assistant. Answer using the context below. " +
	"Prefer the web results for current facts and cite their domains. " +
	"If the context does not cover the question, say so and suggest what to look up."

// Config holds the language model settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      *zap.Logger
}

// Answerer calls the chat-completions endpoint once per question.
type Answerer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewAnswerer creates an OpenAI-compatible answerer.
func NewAnswerer(cfg *Config) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Answer renders the assembled context into a system prompt and asks the model.
func (a *Answerer) Answer(ctx context.Context, query string, c assembled.Context) (answer.Answer, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(c)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(a.model, "error").Inc()
		a.logger.Warn("chat completion failed", zap.String("model", a.model), zap.Error(err))
		return answer.Answer{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequests.WithLabelValues(a.model, "error").Inc()
		return answer.Answer{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProvider)
	}

	metrics.LLMRequests.WithLabelValues(a.model, "success").Inc()
	metrics.LLMTokens.WithLabelValues(a.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokens.WithLabelValues(a.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	model := resp.Model
	if model == "" {
		model = a.model
	}
	return answer.Answer{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Sources:          append([]string{}, c.ContextSources...),
	}, nil
}

// SystemPrompt lays out the non-empty sections of c under fixed headings.
func SystemPrompt(c assembled.Context) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	for _, s := range []struct{ title, body string }{
		{"User profile", c.UserProfile},
		{"Relevant memory", c.RelevantMemory},
		{"Web results", c.WebResults},
		{"Conversation", c.ConversationContext},
	} {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		b.WriteString("\n\n## ")
		b.WriteString(s.title)
		b.WriteString("\n")
		b.WriteString(s.body)
	}
	return b.String()
}

// parseAPIError wraps every failure with domain.ErrLLMProvider for 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrLLMProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("llm API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("llm request: %w", errors.Join(wrap, err))
	}
	return fmt.Errorf("llm request failed: %w", wrap)
}

// extractDetail reads the "detail" field some compatible providers use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
