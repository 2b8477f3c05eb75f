package routing

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
)

// Registry resolves provider names to adapters. providerfactory.Manager
// satisfies it.
type Registry interface {
	GetProvider(name string) (providers.Provider, error)
}

// Router is the single classification point between a user-facing model id
// and the adapter that serves it. Classification is a pure string match on
// the marker table followed by the adapter's alias resolution; it never
// performs network calls.
//
// Router is safe for concurrent use. The marker table can be swapped with
// Update on configuration reload.
//
// Example usage:
//
//	router := routing.NewRouter(manager, cfg.Routing)
//	route, err := router.Classify("claude-3-opus")
//	if err != nil {
//	    return err // *providers.ConfigError
//	}
//	fmt.Println(route.ProviderName, route.Model, route.Premium)
//	// anthropic claude-3-opus-20240229 true
type Router struct {
	registry Registry
	stats    *AtomicRoutingStats

	mu              sync.RWMutex
	markers         []Marker
	defaultProvider string
	defaultModel    string
}

// NewRouter creates a router over registry using the routing configuration.
func NewRouter(registry Registry, cfg config.RoutingConfig) *Router {
	r := &Router{
		registry: registry,
		stats:    NewAtomicRoutingStats(),
	}
	r.Update(cfg)
	return r
}

// Update replaces the marker table and defaults.
func (r *Router) Update(cfg config.RoutingConfig) {
	markers := make([]Marker, 0, len(cfg.Markers))
	for _, m := range cfg.Markers {
		markers = append(markers, Marker{
			Marker:   strings.ToLower(strings.TrimSpace(m.Marker)),
			Provider: m.Provider,
			Premium:  m.Premium,
		})
	}

	defaultProvider := cfg.DefaultProvider
	if defaultProvider == "" {
		defaultProvider = config.DefaultRoutingProvider
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = config.DefaultRoutingModel
	}

	r.mu.Lock()
	r.markers = markers
	r.defaultProvider = defaultProvider
	r.defaultModel = defaultModel
	r.mu.Unlock()
}

// Markers returns a copy of the current marker table in priority order.
func (r *Router) Markers() []Marker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Marker(nil), r.markers...)
}

// DefaultModel returns the baseline model used when a request names none.
func (r *Router) DefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// match returns the first marker contained in modelID, or nil.
func (r *Router) match(modelID string) (*Marker, string, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := strings.ToLower(modelID)
	for i := range r.markers {
		if strings.Contains(id, r.markers[i].Marker) {
			m := r.markers[i]
			return &m, r.defaultProvider, r.defaultModel
		}
	}
	return nil, r.defaultProvider, r.defaultModel
}

// IsPremium reports whether modelID is gated behind a subscription.
func (r *Router) IsPremium(modelID string) bool {
	m, _, _ := r.match(modelID)
	return m != nil && m.Premium
}

// Classify maps modelID to its adapter, canonical model and premium flag.
//
// An empty id is classified as the baseline model. An id that contains no
// marker routes to the default provider, not premium. If the selected
// provider is not registered or its credential is absent or implausible,
// Classify returns a *providers.ConfigError; the message never carries the
// credential.
func (r *Router) Classify(modelID string) (*Route, error) {
	requested := strings.TrimSpace(modelID)
	m, defaultProvider, defaultModel := r.match(requested)
	if requested == "" {
		requested = defaultModel
		m, _, _ = r.match(requested)
	}

	route := &Route{
		Requested:    requested,
		ProviderName: defaultProvider,
	}
	if m != nil {
		route.ProviderName = m.Provider
		route.Marker = m.Marker
		route.Premium = m.Premium
	}

	provider, err := r.registry.GetProvider(route.ProviderName)
	if err != nil {
		cerr := &providers.ConfigError{
			Provider: route.ProviderName,
			Message:  "provider is not registered",
		}
		r.stats.record(nil, cerr)
		return nil, cerr
	}
	if !provider.IsConfigured() {
		cerr := &providers.ConfigError{
			Provider: route.ProviderName,
			Field:    "api_key",
			Message:  "credential is missing or malformed",
		}
		r.stats.record(nil, cerr)
		slog.Warn("model routed to unconfigured provider",
			"model", requested,
			"provider", route.ProviderName,
		)
		return nil, cerr
	}

	route.Provider = provider
	route.Model = provider.ResolveModel(requested)
	r.stats.record(route, nil)

	slog.Debug("model classified",
		"requested", requested,
		"provider", route.ProviderName,
		"model", route.Model,
		"premium", route.Premium,
	)
	return route, nil
}

// GetStats returns current routing statistics.
func (r *Router) GetStats() *RoutingStats {
	return r.stats.Snapshot()
}

// String renders the marker table for diagnostics.
func (m Marker) String() string {
	tier := "standard"
	if m.Premium {
		tier = "premium"
	}
	return fmt.Sprintf("%s -> %s (%s)", m.Marker, m.Provider, tier)
}
