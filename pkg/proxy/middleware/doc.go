// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server composes the chain like this (outermost first):
//
//	Recovery → RequestID → Logging → Tracing → CORS → Limits → [Auth] → [Timeout] → handler
//
// Auth (auth.RequireAuth) wraps only the chat routes and rejects invalid
// tokens before the multipart body is parsed. Timeout wraps only
// the non-streaming routes; a streamed answer may legitimately run for
// minutes.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: keep or generate X-Request-ID, attach it to logs
//   - LoggingMiddleware: one access log line per request
//
// Security and resilience:
//   - CORSMiddleware: CORS headers from server.cors
//   - LimitsMiddleware: 413 for bodies over server.max_body_bytes
//   - RecoveryMiddleware: recover from panics, return 500
//   - TimeoutMiddleware: context deadline from server.request_timeout
//   - RateLimitMiddleware: 429 once a user exceeds access.rate_limit
//
// # Streaming
//
// LoggingMiddleware wraps the ResponseWriter to capture the status. The
// wrapper forwards Flush, so SSE events reach the client as they are
// written, and counts the flushes for the access log.
package middleware
