package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubescout_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubescout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	YouTubeAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubescout_youtube_api_calls_total",
			Help: "Total number of YouTube Data API calls.",
		},
		[]string{"operation", "outcome"},
	)

	QuotaUnitsUsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubescout_quota_units_used_total",
			Help: "Total quota units recorded across all API keys.",
		},
		[]string{"operation"},
	)

	KeysExhausted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubescout_keys_exhausted",
			Help: "Number of API keys currently marked exhausted.",
		},
	)

	KeyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tubescout_key_rotations_total",
			Help: "Total number of quota-triggered key rotations.",
		},
	)

	DiscoveryRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubescout_discovery_runs_total",
			Help: "Total number of channel discovery runs.",
		},
		[]string{"status"},
	)

	DiscoveryCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubescout_discovery_cache_total",
			Help: "Discovery cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		YouTubeAPICallsTotal,
		QuotaUnitsUsedTotal,
		KeysExhausted,
		KeyRotationsTotal,
		DiscoveryRunsTotal,
		DiscoveryCacheHitsTotal,
	)
}
