package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter(m *HTTP) *chi.Mux {
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Post("/v1/intent", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"primary_intent":"factual"}`))
	})
	r.Post("/v1/cache/lookup", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/v1/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Get("/v1/users/{id}/preferences", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	return r
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	m := NewHTTP()
	r := newRouter(m)

	tests := []struct {
		path   string
		status string
	}{
		{"/v1/intent", "200"},
		{"/v1/cache/lookup", "404"},
		{"/v1/search", "502"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tc.path, http.NoBody))

			if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", tc.path, tc.status)); got != 1 {
				t.Errorf("http_requests_total{route=%s,status=%s} = %v, want 1", tc.path, tc.status, got)
			}
		})
	}
	if testutil.CollectAndCount(m.duration) != 3 {
		t.Errorf("duration series = %d, want 3", testutil.CollectAndCount(m.duration))
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("in-flight after requests = %v, want 0", got)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := NewHTTP()
	r := newRouter(m)
	for _, id := range []string{"alice", "bob"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/users/"+id+"/preferences", http.NoBody))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/users/{id}/preferences", "200")); got != 2 {
		t.Errorf("expected both users under one route label, got %v", got)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	m := NewHTTP()
	r := newRouter(m)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", unmatchedRoute, "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestHTTP_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err != nil {
		t.Errorf("second Register: %v", err)
	}

	r := newRouter(m)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/intent", http.NoBody))
	if n, err := testutil.GatherAndCount(reg, "relocbot_http_requests_total"); err != nil || n != 1 {
		t.Errorf("gathered series = %d, %v; want 1", n, err)
	}
}
