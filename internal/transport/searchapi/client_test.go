package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sou1nonly/relocation-chatbot/internal/domain"
	"github.com/sou1nonly/relocation-chatbot/internal/metrics"
)

const serperBody = `{
  "searchParameters": {"q": "best neighborhoods in Austin"},
  "organic": [
    {"title": "Best Neighborhoods in Austin", "link": "https://www.niche.com/austin", "snippet": "Rankings of Austin neighborhoods.", "position": 1, "date": "Mar 3, 2026"},
    {"title": "No link", "link": "", "snippet": "skipped", "position": 2},
    {"title": "Austin Guide", "link": "https://austintexas.gov/guide", "snippet": "Official guide.", "position": 3}
  ]
}`

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("X-API-KEY"))
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Q != "best neighborhoods in Austin" || req.Num != 5 {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(serperBody))
	}))
	defer server.Close()

	c := New(Config{APIKey: "test-key", BaseURL: server.URL})
	before := testutil.ToFloat64(metrics.SearchProviderRequests.WithLabelValues("success"))

	got, err := c.Search(context.Background(), "best neighborhoods in Austin", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (linkless result skipped)", len(got))
	}
	if got[0].Rank != 1 || got[1].Rank != 3 {
		t.Errorf("ranks = %d, %d", got[0].Rank, got[1].Rank)
	}
	if got[0].PublishDate == nil || !got[0].PublishDate.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishDate = %v", got[0].PublishDate)
	}
	if got[1].PublishDate != nil {
		t.Errorf("PublishDate = %v, want nil", got[1].PublishDate)
	}
	if after := testutil.ToFloat64(metrics.SearchProviderRequests.WithLabelValues("success")); after != before+1 {
		t.Errorf("success counter = %v, want %v", after, before+1)
	}
}

func TestSearch_Unavailable(t *testing.T) {
	c := New(Config{})
	if c.Available() {
		t.Fatal("client without key must be unavailable")
	}
	got, err := c.Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil results, got %v", got)
	}
}

func TestSearch_ProviderError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limit exceeded"}`))
	}))
	defer server.Close()

	c := New(Config{APIKey: "k", BaseURL: server.URL})
	_, err := c.Search(context.Background(), "q", 0)

	if !errors.Is(err, domain.ErrSearchProvider) {
		t.Fatalf("expected ErrSearchProvider, got %v", err)
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusTooManyRequests || pe.Message != "rate limit exceeded" {
		t.Errorf("provider error = %+v", pe)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want exactly 1", calls)
	}
}

func TestSearch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(Config{APIKey: "k", BaseURL: url})
	_, err := c.Search(context.Background(), "q", 0)

	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 0 {
		t.Fatalf("expected transport ProviderError, got %v", err)
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	c := New(Config{APIKey: "k", BaseURL: server.URL})
	got, err := c.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("malformed body must not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero results, got %d", len(got))
	}
}

func TestSearch_LimitCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(serperBody))
	}))
	defer server.Close()

	c := New(Config{APIKey: "k", BaseURL: server.URL, MaxResults: 1})
	got, err := c.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body, status, want string
	}{
		{`{"message":"bad key"}`, "401 Unauthorized", "bad key"},
		{`{"error":"quota"}`, "403 Forbidden", "quota"},
		{``, "500 Internal Server Error", "500 Internal Server Error"},
		{`upstream timeout`, "504 Gateway Timeout", "upstream timeout"},
	}
	for _, tc := range tests {
		if got := errorMessage([]byte(tc.body), tc.status); got != tc.want {
			t.Errorf("errorMessage(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}
