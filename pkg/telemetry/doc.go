// Package telemetry groups the gateway's observability packages.
//
// # Components
//
//   - logging: slog logger with context fields and credential redaction
//   - metrics: Prometheus collector for turns, providers, access and uploads
//   - tracing: OpenTelemetry spans exported over OTLP
//   - health: liveness, readiness and provider health endpoints
//
// The server wires all four from the telemetry section of the configuration.
// Logging is always on; metrics and tracing can each be switched off.
package telemetry
