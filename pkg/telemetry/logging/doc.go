// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package builds a log/slog logger whose handler:
//   - emits JSON or text records
//   - adds request_id, session, user, provider and model from the context
//   - adds trace_id and span_id when the context carries an OpenTelemetry span
//   - masks provider API keys, bearer tokens, JWTs and email addresses
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithSession(ctx, "s1")
//	logger.InfoContext(ctx, "turn completed", "response_bytes", 42)
//	// {"level":"INFO","msg":"turn completed","session":"s1","response_bytes":42}
//
// # Redaction
//
// Redaction applies to every string attribute and to error values:
//
//   - sk-ant-api03-abc... → sk-ant-***
//   - sk-proj-abc123...   → sk-***
//   - xai-abc...          → xai-***
//   - AIzaSyabc...        → AIza***
//   - Bearer eyJhbGci...  → Bearer ***
//   - alice@example.com   → a***@example.com
//
// Attributes keyed token, secret, password, api_key or authorization (or
// ending in _token, _secret, _api_key, _password) are masked regardless of
// their content.
package logging
