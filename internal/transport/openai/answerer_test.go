package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
	"github.com/sou1nonly/relocation-chatbot/internal/metrics"
)

func sampleContext() assembled.Context {
	return assembled.Context{
		UserProfile:         "Current location: Chicago",
		WebResults:          "Web results:\n1. Best Neighborhoods in Austin (niche.com, score 0.85)",
		ConversationContext: "User query: best neighborhoods in Austin",
		ContextSources:      []string{"query", "user_profile", "web_results"},
	}
}

func TestAnswerer_Answer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Fatalf("request = %+v", req)
		}
		if !strings.Contains(req.Messages[0].Content, "## Web results") {
			t.Errorf("system prompt missing web results: %q", req.Messages[0].Content)
		}
		if req.Messages[1].Content != "best neighborhoods in Austin" {
			t.Errorf("user message = %q", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "  Try Mueller or Zilker.  "},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128},
		})
	}))
	defer server.Close()

	a := NewAnswerer(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	before := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("test-model", "prompt"))

	got, err := a.Answer(context.Background(), "best neighborhoods in Austin", sampleContext())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Text != "Try Mueller or Zilker." {
		t.Errorf("Text = %q", got.Text)
	}
	if got.PromptTokens != 120 || got.CompletionTokens != 8 {
		t.Errorf("usage = %d/%d", got.PromptTokens, got.CompletionTokens)
	}
	if len(got.Sources) != 3 {
		t.Errorf("Sources = %v", got.Sources)
	}
	if after := testutil.ToFloat64(metrics.LLMTokens.WithLabelValues("test-model", "prompt")); after != before+120 {
		t.Errorf("prompt tokens counter = %v, want %v", after, before+120)
	}
}

func TestAnswerer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer server.Close()

	a := NewAnswerer(&Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := a.Answer(context.Background(), "hello", assembled.Context{})
	if !errors.Is(err, domain.ErrLLMProvider) {
		t.Fatalf("expected ErrLLMProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("status missing from error: %v", err)
	}
}

func TestAnswerer_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[],"usage":{}}`))
	}))
	defer server.Close()

	a := NewAnswerer(&Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := a.Answer(context.Background(), "hello", assembled.Context{}); !errors.Is(err, domain.ErrLLMProvider) {
		t.Fatalf("expected ErrLLMProvider, got %v", err)
	}
}

func TestSystemPrompt_SkipsEmptySections(t *testing.T) {
	got := SystemPrompt(assembled.Context{UserProfile: "Career field: nursing"})
	if !strings.Contains(got, "## User profile\nCareer field: nursing") {
		t.Errorf("prompt = %q", got)
	}
	for _, h := range []string{"## Relevant memory", "## Web results", "## Conversation"} {
		if strings.Contains(got, h) {
			t.Errorf("prompt contains empty section %s", h)
		}
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail = %q", got)
	}
}
