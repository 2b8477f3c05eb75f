package metrics

import (
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics tracks quota and subscription decisions.
//
// Metrics:
//   - parley_access_decisions_total: evaluations by outcome
//   - parley_access_denials_total: rejections by reason
//   - parley_access_evaluation_duration_seconds: evaluation latency
//   - parley_billing_lookups_total: subscription lookups by result
//   - parley_billing_lookup_duration_seconds: subscription lookup latency
//   - parley_rate_limited_total: requests throttled by limit
type AccessMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	denialsTotal       *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	billingLookups     *prometheus.CounterVec
	billingDuration    prometheus.Histogram
	rateLimited        *prometheus.CounterVec
}

// NewAccessMetrics creates and registers access metrics with the provided registry.
func NewAccessMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AccessMetrics {
	am := &AccessMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "access_decisions_total",
				Help:      "Total number of access evaluations by outcome",
			},
			[]string{"outcome"},
		),

		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "access_denials_total",
				Help:      "Total number of rejected turns by reason",
			},
			[]string{"reason"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "access_evaluation_duration_seconds",
				Help:      "Duration of access evaluation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9), // 100µs to 6.5s
			},
		),

		billingLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "billing_lookups_total",
				Help:      "Total number of subscription lookups by result",
			},
			[]string{"result"},
		),

		billingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "billing_lookup_duration_seconds",
				Help:      "Duration of subscription lookups in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),

		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests throttled by limit",
			},
			[]string{"limit"},
		),
	}

	registry.MustRegister(
		am.decisionsTotal,
		am.denialsTotal,
		am.evaluationDuration,
		am.billingLookups,
		am.billingDuration,
		am.rateLimited,
	)

	return am
}

// RecordDecision records an evaluation. An empty reason means allowed.
func (am *AccessMetrics) RecordDecision(reason string, duration time.Duration) {
	am.evaluationDuration.Observe(duration.Seconds())
	if reason == "" {
		am.decisionsTotal.WithLabelValues("allowed").Inc()
		return
	}
	am.decisionsTotal.WithLabelValues("denied").Inc()
	am.denialsTotal.WithLabelValues(reason).Inc()
}

// RecordBillingLookup records a subscription lookup.
func (am *AccessMetrics) RecordBillingLookup(result string, duration time.Duration) {
	am.billingLookups.WithLabelValues(result).Inc()
	am.billingDuration.Observe(duration.Seconds())
}

// RecordRateLimited records a throttled request.
func (am *AccessMetrics) RecordRateLimited(limit string) {
	am.rateLimited.WithLabelValues(limit).Inc()
}
