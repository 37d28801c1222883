package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sou1nonly/relocation-chatbot/pkg/retrieval"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"relocbotctl", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "current", "weather", "in", "Denver", "today")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var in retrieval.QueryIntent
	if err := json.Unmarshal([]byte(out), &in); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(in.Entities.Locations) != 1 || in.Entities.Locations[0] != "Denver" {
		t.Errorf("Locations = %v, want [Denver]", in.Entities.Locations)
	}
}

func TestRewriteCommand(t *testing.T) {
	out, err := run(t, "rewrite", "best neighborhoods in Austin")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	var rw retrieval.RewrittenQuery
	if err := json.Unmarshal([]byte(out), &rw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rw.Original != "best neighborhoods in Austin" || rw.Rewritten == "" {
		t.Errorf("rewrite = %+v", rw)
	}
}

func TestSearchCommand_NoAPIKey(t *testing.T) {
	t.Setenv("SEARCH_API_KEY", "")
	out, err := run(t, "search", "current weather in Denver today")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp retrieval.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.SearchUnavailable {
		t.Error("search_unavailable should be set without an API key")
	}
}

func TestUserContextFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"target_cities":["Austin"],"career_field":"nursing"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--user-context", path, "classify", "are there good jobs for me")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var in retrieval.QueryIntent
	if err := json.Unmarshal([]byte(out), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Confidence.PersonalRelevance == 0 {
		t.Error("user context should raise personal relevance")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing query", []string{"classify"}, "query is required"},
		{"missing user context file", []string{"--user-context", "/nonexistent/user.json", "classify", "rent"}, "read user context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
