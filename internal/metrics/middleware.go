package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that no chi route matched.
const unmatchedRoute = "unmatched"

// HTTP holds the per-route request collectors.
type HTTP struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewHTTP creates unregistered HTTP collectors.
func NewHTTP() *HTTP {
	return &HTTP{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of API requests by route",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "API requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "http_requests_in_flight",
				Help:      "API requests currently being served",
			},
		),
	}
}

// Register adds the collectors to reg. Collectors already registered with
// reg are left in place.
func (m *HTTP) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.duration, m.requests, m.inFlight} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err //nolint:wrapcheck // registry errors name the collector
		}
	}
	return nil
}

// Middleware records latency, count and in-flight requests labelled by the
// matched chi route pattern, so path parameters do not inflate cardinality.
func (m *HTTP) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			labels := []string{r.Method, routeLabel(r), strconv.Itoa(status)}
			m.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(labels...).Inc()
		})
	}
}

func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}

// HTTPMetrics are the server's collectors on the default registry.
var HTTPMetrics = NewHTTP()

var registerHTTPOnce sync.Once

// RegisterHTTPMetrics registers HTTPMetrics with the default registry.
// Safe to call more than once.
func RegisterHTTPMetrics() {
	registerHTTPOnce.Do(func() {
		if err := HTTPMetrics.Register(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}
	})
}
