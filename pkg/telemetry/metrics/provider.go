package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/parley/pkg/config"
)

// providerLatencyBuckets stretch to two minutes: latency covers the whole
// upstream call, including every streamed chunk.
var providerLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ProviderMetrics describes upstream adapters as seen from real traffic:
//
//	<ns>_provider_health{provider}                 1 healthy, 0 not
//	<ns>_provider_latency_seconds{provider}        full call, stream included
//	<ns>_provider_errors_total{provider,error_type}
//	<ns>_provider_requests_total{provider}
type ProviderMetrics struct {
	health   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

// NewProviderMetrics registers the provider families on registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	ns := cfg.Namespace
	byProvider := []string{"provider"}

	pm := &ProviderMetrics{
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "provider_health",
			Help:      "Passive provider health from the last call (1=healthy, 0=unhealthy).",
		}, byProvider),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "provider_latency_seconds",
			Help:      "Upstream call latency in seconds, until the stream's terminal chunk.",
			Buckets:   providerLatencyBuckets,
		}, byProvider),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_errors_total",
			Help:      "Failed or refused upstream calls by provider and error type.",
		}, []string{"provider", "error_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_requests_total",
			Help:      "Upstream calls dispatched to each provider.",
		}, byProvider),
	}

	registry.MustRegister(pm.health, pm.latency, pm.errors, pm.requests)
	return pm
}

// UpdateHealth sets the health gauge of provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	var v float64
	if healthy {
		v = 1
	}
	pm.health.WithLabelValues(provider).Set(v)
}

// RecordLatency observes one upstream call.
func (pm *ProviderMetrics) RecordLatency(provider string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordError counts a provider failure. errorType is one of not_configured
// (refused before any call), rate_limit, server_error, client_error or
// network.
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}

// RecordRequest counts a dispatched call.
func (pm *ProviderMetrics) RecordRequest(provider string) {
	pm.requests.WithLabelValues(provider).Inc()
}
