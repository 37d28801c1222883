package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric the service exports.
const Namespace = "relocbot"

// Retrieval pipeline Prometheus metrics.
var (
	SearchCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_cache_lookups_total",
			Help:      "Search cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_cache_evictions_total",
			Help:      "Search cache entries removed by capacity eviction",
		},
	)

	SearchCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "search_cache_entries",
			Help:      "Current number of search cache entries",
		},
	)

	SearchProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_provider_requests_total",
			Help:      "Web search provider requests by outcome",
		},
		[]string{"status"},
	)

	SearchProviderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_provider_duration_seconds",
			Help:      "Web search provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pipeline_runs_total",
			Help:      "Retrieval pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	FallbackTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fallback_triggered_total",
			Help:      "Fallback strategies selected for weak results",
		},
		[]string{"strategy"},
	)

	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_requests_total",
			Help:      "Language model requests",
		},
		[]string{"model", "status"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_tokens_total",
			Help:      "Language model tokens consumed",
		},
		[]string{"model", "type"},
	)

	AssembledContextTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "assembled_context_tokens",
			Help:      "Estimated tokens in assembled contexts",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
		},
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers pipeline metrics with the default registry.
// Safe to call more than once.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchCacheLookups,
			SearchCacheEvictions,
			SearchCacheEntries,
			SearchProviderRequests,
			SearchProviderDuration,
			PipelineRuns,
			FallbackTriggered,
			LLMRequests,
			LLMTokens,
			AssembledContextTokens,
		)
	})
}
