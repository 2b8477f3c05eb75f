package routing

import (
	"mercator-hq/parley/pkg/providers"
)

// Marker maps a case-insensitive model id substring to a provider.
// Markers are evaluated in table order; the first one contained in the
// model id wins.
type Marker struct {
	// Marker is the lowercase substring to look for (e.g., "claude").
	Marker string

	// Provider is the provider name the marker routes to.
	Provider string

	// Premium gates every model matching this marker behind a subscription.
	Premium bool
}

// Route is the result of classifying a model id.
type Route struct {
	// Provider is the adapter responsible for the model.
	Provider providers.Provider

	// ProviderName is the name of the adapter.
	ProviderName string

	// Model is the canonical model id after alias resolution.
	Model string

	// Requested is the model id as the caller supplied it.
	Requested string

	// Marker is the marker that matched, empty for the default route.
	Marker string

	// Premium reports whether the model is gated.
	Premium bool
}

// RoutingStats is a point-in-time snapshot of classification counters.
type RoutingStats struct {
	// TotalRequests is the number of Classify calls.
	TotalRequests int64 `json:"total_requests"`

	// RequestsPerProvider counts successful classifications per provider.
	RequestsPerProvider map[string]int64 `json:"requests_per_provider"`

	// PremiumCount counts classifications into a premium route.
	PremiumCount int64 `json:"premium_count"`

	// DefaultCount counts ids that matched no marker.
	DefaultCount int64 `json:"default_count"`

	// Errors counts classifications that ended in a ConfigError.
	Errors int64 `json:"errors"`
}
