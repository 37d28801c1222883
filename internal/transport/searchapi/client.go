// Package searchapi is a client for Serper-compatible web search APIs.
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/domain/result"
	"github.com/sou1nonly/relocation-chatbot/internal/metrics"
)

// Defaults for Config.
const (
	DefaultBaseURL    = "https://google.serper.dev/search"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxResults = 10
)

const maxBodyBytes = 4 << 20

// Config holds the search provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxResults int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client performs one POST per search. Failures are never retried.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	http       *http.Client
	logger     *zap.Logger
}

// New creates a search client. An empty API key yields a client whose
// searches fail with domain.ErrSearchUnavailable.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// Available reports whether credentials are configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type organicResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
	Date     string `json:"date,omitempty"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

// Search returns up to limit results (the configured maximum when limit <= 0).
// An undecodable response body yields zero results and no error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]result.WebSearchResult, error) {
	if !c.Available() {
		metrics.SearchProviderRequests.WithLabelValues("unavailable").Inc()
		return []result.WebSearchResult{}, domain.ErrSearchUnavailable
	}
	if limit <= 0 || limit > c.maxResults {
		limit = c.maxResults
	}

	body, err := json.Marshal(searchRequest{Q: query, Num: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SearchProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchProviderRequests.WithLabelValues("error").Inc()
		c.logger.Warn("search request failed", zap.Error(err))
		return nil, domain.NewProviderError(0, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.SearchProviderRequests.WithLabelValues("error").Inc()
		return nil, domain.NewProviderError(0, "read body: "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SearchProviderRequests.WithLabelValues("error").Inc()
		msg := errorMessage(data, resp.Status)
		c.logger.Warn("search provider returned error",
			zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, domain.NewProviderError(resp.StatusCode, msg)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.SearchProviderRequests.WithLabelValues("parse_error").Inc()
		c.logger.Warn("undecodable search response", zap.Error(err), zap.Int("bytes", len(data)))
		return []result.WebSearchResult{}, nil
	}

	metrics.SearchProviderRequests.WithLabelValues("success").Inc()
	return toResults(parsed.Organic, limit), nil
}

func toResults(organic []organicResult, limit int) []result.WebSearchResult {
	out := make([]result.WebSearchResult, 0, min(len(organic), limit))
	for i, o := range organic {
		if len(out) == limit {
			break
		}
		if strings.TrimSpace(o.Link) == "" {
			continue
		}
		rank := o.Position
		if rank <= 0 {
			rank = i + 1
		}
		r := result.WebSearchResult{
			Title:   strings.TrimSpace(o.Title),
			Snippet: strings.TrimSpace(o.Snippet),
			Link:    o.Link,
			Rank:    rank,
		}
		if t, ok := parseDate(o.Date); ok {
			r.PublishDate = &t
		}
		out = append(out, r)
	}
	return out
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006"}

// parseDate accepts absolute dates only; relative ones ("3 days ago") are
// resolved from the snippet during scoring.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// errorMessage prefers the provider's JSON "message" field over the raw body.
func errorMessage(body []byte, status string) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
