package metrics

import (
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks chat turns end to end.
//
// Metrics:
//   - parley_turns_total: finished turns by provider, model, status
//   - parley_turn_duration_seconds: intake to terminal event
//   - parley_first_chunk_seconds: dispatch to first delta
//   - parley_stream_chunks: deltas per turn
//   - parley_stream_bytes_total: streamed assistant bytes
//   - parley_tokens_total: provider-reported tokens
type RequestMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	firstChunk   *prometheus.HistogramVec
	streamChunks *prometheus.HistogramVec
	streamBytes  *prometheus.CounterVec
	tokensTotal  *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "turns_total",
				Help:      "Total number of chat turns by outcome",
			},
			[]string{"provider", "model", "status"},
		),

		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of chat turns in seconds",
				// Optimized for LLM latencies (100ms - 2m)
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		firstChunk: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "first_chunk_seconds",
				Help:      "Time from provider dispatch to the first streamed delta",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),

		streamChunks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_chunks",
				Help:      "Number of deltas delivered per turn",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7), // 1 to 4096
			},
			[]string{"provider"},
		),

		streamBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_bytes_total",
				Help:      "Total assistant bytes delivered to clients",
			},
			[]string{"provider"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "tokens_total",
				Help:      "Total provider-reported tokens",
			},
			[]string{"provider", "type"},
		),
	}

	registry.MustRegister(
		rm.turnsTotal,
		rm.turnDuration,
		rm.firstChunk,
		rm.streamChunks,
		rm.streamBytes,
		rm.tokensTotal,
	)

	return rm
}

// RecordTurn records a finished turn.
func (rm *RequestMetrics) RecordTurn(provider, model, status string, duration time.Duration) {
	rm.turnsTotal.WithLabelValues(provider, model, status).Inc()
	rm.turnDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordFirstChunk records time to first delta.
func (rm *RequestMetrics) RecordFirstChunk(provider string, latency time.Duration) {
	rm.firstChunk.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordStream records the deltas and bytes of one turn.
func (rm *RequestMetrics) RecordStream(provider string, chunks, bytes int) {
	rm.streamChunks.WithLabelValues(provider).Observe(float64(chunks))
	if bytes > 0 {
		rm.streamBytes.WithLabelValues(provider).Add(float64(bytes))
	}
}

// RecordTokens records token counts separately for prompt and completion.
func (rm *RequestMetrics) RecordTokens(provider string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		rm.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}
