package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockSearch struct {
	available bool
}

func (m *mockSearch) Available() bool { return m.available }

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		search     SearchChecker
		wantStatus Status
		wantDB     CheckResult
		wantSearch CheckResult
	}{
		{"all healthy", nil, &mockSearch{available: true}, Healthy, CheckOK, CheckOK},
		{"store down", errors.New("conn refused"), &mockSearch{available: true}, Degraded, CheckError, CheckOK},
		{"no search key", nil, &mockSearch{}, Degraded, CheckOK, CheckUnconfigured},
		{"no search provider", nil, nil, Degraded, CheckOK, CheckUnconfigured},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&mockDBPinger{err: tc.db}, tc.search).Check(context.Background())
			if r.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", r.Status, tc.wantStatus)
			}
			if r.Checks[ComponentMemoryStore] != tc.wantDB {
				t.Errorf("memory_store = %q, want %q", r.Checks[ComponentMemoryStore], tc.wantDB)
			}
			if r.Checks[ComponentSearch] != tc.wantSearch {
				t.Errorf("search_provider = %q, want %q", r.Checks[ComponentSearch], tc.wantSearch)
			}
		})
	}
}
