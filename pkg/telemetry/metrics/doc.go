// Package metrics provides Prometheus metrics for the chat gateway.
//
// # Metrics Categories
//
//   - Turn Metrics: turn count and duration, time to first delta, stream size, tokens
//   - Provider Metrics: provider health, latency and error rates
//   - Access Metrics: quota decisions, denials by reason, billing lookups
//   - Attachment Metrics: processed files by outcome, pruned blobs
//   - Session Metrics: in-memory sessions, failed durable writes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordTurn("anthropic", "claude-sonnet-4-20250514", "success", 2*time.Second)
//	collector.RecordAccessDecision("quota_new_chat", 300*time.Microsecond)
//	collector.UpdateProviderHealth("openai", true)
//
// A nil *Collector is valid and records nothing.
//
// # Prometheus Endpoint
//
//	# HELP parley_turns_total Total number of chat turns by outcome
//	# TYPE parley_turns_total counter
//	parley_turns_total{model="gpt-4o-mini",provider="openai",status="success"} 1234
//
// # Cardinality Management
//
// Model ids are client supplied. Once 10,000 distinct turn label sets have
// been seen, new models are recorded as "other".
package metrics
