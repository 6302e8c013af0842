package metrics

import "github.com/prometheus/client_golang/prometheus"

// Provider Prometheus metrics. op is "embed" or "chat".
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "provider_requests_total",
			Help:      "Total number of provider requests",
		},
		[]string{"provider", "model", "op", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tourassist",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"provider", "model", "op"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "provider_tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "provider_errors_total",
			Help:      "Total provider errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "provider_retries_total",
			Help:      "Retries issued after transient provider errors",
		},
		[]string{"op"},
	)

	ProviderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "provider_fallbacks_total",
			Help:      "Requests answered with a fallback text after provider failure",
		},
		[]string{"op"},
	)

	ProviderInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tourassist",
			Name:      "provider_inflight",
			Help:      "Outbound provider calls currently holding a slot",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourassist",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers provider metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderTokensTotal)
	prometheus.MustRegister(ProviderErrorsTotal)
	prometheus.MustRegister(ProviderRetriesTotal)
	prometheus.MustRegister(ProviderFallbacksTotal)
	prometheus.MustRegister(ProviderInFlight)
	prometheus.MustRegister(EmbeddingCacheTotal)
	providerMetricsRegistered = true
}
