package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/parley/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric the gateway exports. A nil
// *Collector is valid and records nothing, so components can take one
// optionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics    *RequestMetrics
	providerMetrics   *ProviderMetrics
	accessMetrics     *AccessMetrics
	attachmentMetrics *AttachmentMetrics
	sessionMetrics    *SessionMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a fresh registry is used.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle("GET /metrics", collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "parley"
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.providerMetrics = NewProviderMetrics(cfg, registry)
	c.accessMetrics = NewAccessMetrics(cfg, registry)
	c.attachmentMetrics = NewAttachmentMetrics(cfg, registry)
	c.sessionMetrics = NewSessionMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordTurn records a finished chat turn.
//
// Parameters:
//   - provider: routed provider name ("" when routing never happened)
//   - model: canonical model id
//   - status: "success", "denied", "error" or "cancelled"
//   - duration: time from intake to the terminal event
func (c *Collector) RecordTurn(provider, model, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if provider == "" {
		provider = "none"
	}

	// Model ids come from clients; cap the label space.
	labelSet := fmt.Sprintf("turn:%s:%s:%s", provider, model, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		model = "other"
	}

	c.requestMetrics.RecordTurn(provider, model, status, duration)
}

// RecordFirstChunk records the time from dispatch to the first delta.
func (c *Collector) RecordFirstChunk(provider string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordFirstChunk(provider, latency)
}

// RecordStream records the number of deltas and bytes delivered for a turn.
func (c *Collector) RecordStream(provider string, chunks, bytes int) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordStream(provider, chunks, bytes)
}

// RecordTokens records provider-reported token usage.
func (c *Collector) RecordTokens(provider string, promptTokens, completionTokens int) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordTokens(provider, promptTokens, completionTokens)
}

// RecordProviderCall records one upstream call and its latency.
func (c *Collector) RecordProviderCall(provider string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordRequest(provider)
	c.providerMetrics.RecordLatency(provider, latency.Seconds())
}

// UpdateProviderHealth updates the health gauge of a provider.
//
// The health metric is a gauge where 1=healthy, 0=unhealthy.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.UpdateHealth(provider, healthy)
}

// RecordProviderError records an error from a provider.
//
// Parameters:
//   - provider: provider name
//   - errorType: "not_configured", "client_error", "server_error", "rate_limit" or "network"
func (c *Collector) RecordProviderError(provider, errorType string) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordError(provider, errorType)
}

// RecordAccessDecision records the outcome of one access evaluation.
// reason is empty for an allowed turn.
func (c *Collector) RecordAccessDecision(reason string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.accessMetrics.RecordDecision(reason, duration)
}

// RecordBillingLookup records one subscription lookup.
//
// Parameters:
//   - result: "subscribed", "unsubscribed" or "error"
func (c *Collector) RecordBillingLookup(result string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.accessMetrics.RecordBillingLookup(result, duration)
}

// RecordRateLimited records a request rejected by the per-user limiter.
// limit is "requests" or "streams".
func (c *Collector) RecordRateLimited(limit string) {
	if !c.enabled() {
		return
	}
	c.accessMetrics.RecordRateLimited(limit)
}

// RecordAttachment records one processed attachment.
//
// Parameters:
//   - kind: "image" or "document"
//   - outcome: "accepted", "truncated", "failed" or a drop reason
func (c *Collector) RecordAttachment(kind, outcome string) {
	if !c.enabled() {
		return
	}
	c.attachmentMetrics.RecordAttachment(kind, outcome)
}

// RecordBlobsPruned records blobs removed by the retention pruner.
func (c *Collector) RecordBlobsPruned(n int) {
	if !c.enabled() {
		return
	}
	c.attachmentMetrics.RecordPruned(n)
}

// UpdateActiveSessions sets the in-memory session gauge.
func (c *Collector) UpdateActiveSessions(n int) {
	if !c.enabled() {
		return
	}
	c.sessionMetrics.UpdateActive(n)
}

// RecordPersistenceFailure records a durable write that failed after a turn
// had already been delivered.
func (c *Collector) RecordPersistenceFailure(backend string) {
	if !c.enabled() {
		return
	}
	c.sessionMetrics.RecordPersistenceFailure(backend)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
