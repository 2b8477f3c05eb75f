package metrics

import (
	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AttachmentMetrics tracks uploaded files.
//
// Metrics:
//   - parley_attachments_total: processed files by kind and outcome
//   - parley_blobs_pruned_total: blobs removed by retention
type AttachmentMetrics struct {
	attachmentsTotal *prometheus.CounterVec
	prunedTotal      prometheus.Counter
}

// NewAttachmentMetrics creates and registers attachment metrics with the provided registry.
func NewAttachmentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AttachmentMetrics {
	am := &AttachmentMetrics{
		attachmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "attachments_total",
				Help:      "Total number of processed attachments by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "blobs_pruned_total",
				Help:      "Total number of upload blobs removed by retention",
			},
		),
	}

	registry.MustRegister(am.attachmentsTotal, am.prunedTotal)
	return am
}

// RecordAttachment records one processed file.
func (am *AttachmentMetrics) RecordAttachment(kind, outcome string) {
	am.attachmentsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordPruned adds n pruned blobs.
func (am *AttachmentMetrics) RecordPruned(n int) {
	if n > 0 {
		am.prunedTotal.Add(float64(n))
	}
}
