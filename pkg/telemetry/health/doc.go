// Package health provides the gateway's liveness and readiness endpoints.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, else 503
//   - /health/providers: per-provider health report (ReportHandler)
//
// # Usage
//
//	checker := health.New(version, 5*time.Second)
//	checker.RegisterCheck("storage", store.Ping)
//	checker.RegisterCheck("providers", func(ctx context.Context) error {
//	    if len(manager.ConfiguredProviders()) == 0 {
//	        return errors.New("no provider is configured")
//	    }
//	    return nil
//	})
//
//	mux.Handle("GET /health", checker.LivenessHandler())
//	mux.Handle("GET /ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker's timeout.
package health
