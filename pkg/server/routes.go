package server

import (
	"net/http"

	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/proxy/handlers"
	"mercator-hq/parley/pkg/proxy/middleware"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/telemetry/tracing"
)

// Route patterns served by the gateway.
const (
	RouteChat           = "POST /chat"
	RouteChatStream     = "POST /chat/stream"
	RouteChatDelete     = "DELETE /chat/{" + handlers.PathSessionID + "}"
	RouteHealth         = "GET /health"
	RouteReady          = "GET /ready"
	RouteProviderHealth = "GET /health/providers"
	RouteRoutingStats   = "GET /health/routing"
)

// routes builds the mux and wraps it in the middleware chain. From the
// outside in: recovery, request id, access log, tracing, CORS and the body
// limit. Chat routes add token verification ahead of any body parsing, turn
// routes add per-user rate limits, and all of them except the stream get
// the request timeout.
func (a *App) routes() http.Handler {
	cfg := a.cfg

	parser := proxy.NewRequestParser(a.blobs, proxy.RequestLimits{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		MaxFiles:     cfg.Attachments.MaxFiles,
	})
	chat := handlers.NewChatHandler(a.orch, parser, a.logger)

	bearer := auth.RequireAuth(a.auth, handlers.AuthError)
	timeout := middleware.TimeoutMiddleware(cfg.Server.RequestTimeout)
	limitTurns := middleware.RateLimitMiddleware(a.limiter, middleware.RateLimitOptions{
		Identify:  identify,
		OnLimited: a.metrics.RecordRateLimited,
	})
	limitStreams := middleware.RateLimitMiddleware(a.limiter, middleware.RateLimitOptions{
		Identify:  identify,
		Stream:    true,
		OnLimited: a.metrics.RecordRateLimited,
	})

	mux := http.NewServeMux()
	mux.Handle(RouteChat, bearer(limitTurns(timeout(http.HandlerFunc(chat.HandleChat)))))
	mux.Handle(RouteChatStream, bearer(limitStreams(http.HandlerFunc(chat.HandleStream))))
	mux.Handle(RouteChatDelete, bearer(timeout(http.HandlerFunc(chat.HandleDelete))))

	mux.Handle(RouteHealth, a.health.LivenessHandler())
	mux.Handle(RouteReady, a.health.ReadinessHandler())
	mux.Handle(RouteProviderHealth, handlers.NewProviderHealthHandler(a.providers))
	mux.Handle(RouteRoutingStats, handlers.NewRoutingStatsHandler(a.router))

	if cfg.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+cfg.Telemetry.Metrics.Path, a.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.LimitsMiddleware(cfg.Server.MaxBodyBytes)(handler)
	handler = middleware.CORSMiddleware(cfg.Server.CORS)(handler)
	handler = tracing.HTTPMiddleware(a.tracer.Tracer())(handler)
	handler = middleware.LoggingMiddleware(a.logger)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// identify returns the user RequireAuth verified, for rate limiting.
func identify(r *http.Request) (string, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return "", false
	}
	return id.UserID, true
}
