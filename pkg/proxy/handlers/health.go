package handlers

import (
	"context"
	"errors"
	"net/http"

	"mercator-hq/parley/pkg/providerfactory"
	"mercator-hq/parley/pkg/routing"
	"mercator-hq/parley/pkg/telemetry/health"
)

// ProviderManager is the view of the provider registry the ops endpoints
// need.
type ProviderManager interface {
	ConfiguredProviders() []string
	GetHealthSummary() providerfactory.HealthSummary
}

// ErrNoProviders is the readiness failure when no provider has a credential.
var ErrNoProviders = errors.New("no provider is configured")

// ProvidersReady is a readiness check that passes when at least one provider
// is configured. It never calls a provider.
func ProvidersReady(pm ProviderManager) health.CheckFunc {
	return func(context.Context) error {
		if len(pm.ConfiguredProviders()) == 0 {
			return ErrNoProviders
		}
		return nil
	}
}

// NewProviderHealthHandler serves the passive health of every registered
// provider, as observed from real traffic.
func NewProviderHealthHandler(pm ProviderManager) http.HandlerFunc {
	return health.ReportHandler(func() any {
		return pm.GetHealthSummary()
	})
}

// RoutingStatsSource exposes the router's classification counters.
type RoutingStatsSource interface {
	GetStats() *routing.RoutingStats
}

// NewRoutingStatsHandler serves how requested models have been classified
// since startup: totals, per-provider counts, premium and default routes.
func NewRoutingStatsHandler(src RoutingStatsSource) http.HandlerFunc {
	return health.ReportHandler(func() any {
		return src.GetStats()
	})
}
