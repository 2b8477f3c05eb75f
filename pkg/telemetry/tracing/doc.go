// Package tracing provides OpenTelemetry distributed tracing.
//
// # Overview
//
// Spans are exported over OTLP gRPC to a collector. W3C Trace Context is
// propagated on incoming requests, so a client that sends traceparent sees
// its chat turn as a child of its own trace.
//
// A chat turn produces one span (chat.turn) under the HTTP server span. Its
// events mark the turn states (authenticated, access_checked, streaming ...)
// and its attributes carry the session, user, provider and model.
//
// # Sampling
//
// telemetry.tracing.sample_ratio selects the fraction of root traces kept:
// 1 keeps all, 0 none. Sampling is parent based; an incoming sampled
// traceparent is always honoured.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracing.HTTPMiddleware(tracer.Tracer())(handler)
//
// With tracing disabled, New returns a tracer whose spans are no-ops.
package tracing
