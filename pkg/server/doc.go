// Package server assembles the chat gateway and serves it over HTTP.
//
// # Architecture
//
// NewApp builds every component from one configuration: the chat store, the
// blob store, provider adapters, the model router, access control, bearer
// token verification and the orchestrator that drives a turn through them.
// Server owns the listener and its lifecycle.
//
// # Basic Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    return err
//	}
//
//	app, err := server.NewApp(ctx, cfg, server.Options{Version: version})
//	if err != nil {
//	    return err
//	}
//	defer app.Close(context.Background())
//
//	if err := app.StartBackground(ctx); err != nil {
//	    return err
//	}
//
//	srv := server.NewServer(cfg.Server, app.Handler(), app.Logger())
//	return srv.Start(ctx)
//
// # Routes
//
//   - POST /chat - one turn, answered with {sessionId, model, response}
//   - POST /chat/stream - one turn as server-sent events
//   - DELETE /chat/{sessionId} - forget a session and its uploads
//   - GET /health - liveness (always 200 while the process serves)
//   - GET /ready - storage reachable and at least one provider configured
//   - GET /health/providers - passive health of every provider
//   - GET /health/routing - model classification counters
//   - GET /metrics - Prometheus metrics, when enabled
//
// # Middleware Chain
//
// Requests pass through, from the outside in:
//  1. Recovery: panics become a 500 JSON error
//  2. RequestID: accepts or generates X-Request-ID
//  3. Logging: one access log line per request
//  4. Tracing: server span with W3C context propagation
//  5. CORS
//  6. Limits: request body ceiling
//
// Chat routes then require a bearer token. With access.rate_limit enabled,
// /chat is metered per user by request rate and /chat/stream by open
// streams; a rejection is a 429 with Retry-After. /chat and DELETE also get
// the request timeout. The stream does not.
//
// # TLS
//
// With server.tls enabled the listener terminates TLS and re-reads the
// certificate pair when it changes on disk.
//
// # Graceful Shutdown
//
// Start returns after SIGINT, SIGTERM, context cancellation or Stop. In all
// cases the listener closes and in-flight requests get up to
// server.shutdown_timeout to finish.
//
// # Reload
//
// App.Reload applies provider credentials, the routing table, prompts and
// the log level from a new configuration without dropping connections.
// ${secret:...} references are resolved again first; if any fails the
// reload is rejected and the running configuration stays. Wire
// it to config.Watcher to pick up edits to the configuration file.
package server
