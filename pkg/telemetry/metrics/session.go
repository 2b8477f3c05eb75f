package metrics

import (
	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks conversation state.
//
// Metrics:
//   - parley_sessions_active: sessions held in memory
//   - parley_persistence_failures_total: durable writes that failed after delivery
type SessionMetrics struct {
	active              prometheus.Gauge
	persistenceFailures *prometheus.CounterVec
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "sessions_active",
				Help:      "Number of conversation sessions held in memory",
			},
		),

		persistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "persistence_failures_total",
				Help:      "Total number of durable turn writes that failed",
			},
			[]string{"backend"},
		),
	}

	registry.MustRegister(sm.active, sm.persistenceFailures)
	return sm
}

// UpdateActive sets the active session gauge.
func (sm *SessionMetrics) UpdateActive(n int) {
	sm.active.Set(float64(n))
}

// RecordPersistenceFailure counts a failed durable write.
func (sm *SessionMetrics) RecordPersistenceFailure(backend string) {
	sm.persistenceFailures.WithLabelValues(backend).Inc()
}
