package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
)

// ErrProviderNotFound is returned by GetProvider for an unregistered name.
var ErrProviderNotFound = errors.New("provider not registered")

// Manager manages the set of provider adapters built from configuration.
// Reload swaps the whole set atomically, so in-flight requests keep using
// the adapter they already resolved.
//
// Manager is thread-safe and can be used concurrently.
type Manager struct {
	providers map[string]providers.Provider
	mu        sync.RWMutex
}

// NewManager creates an empty provider manager.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]providers.Provider),
	}
}

// NewManagerFromConfig creates a manager populated from configuration.
func NewManagerFromConfig(cfgs map[string]config.ProviderConfig) (*Manager, error) {
	m := NewManager()
	if err := m.Reload(cfgs); err != nil {
		return nil, err
	}
	return m, nil
}

// AddProvider registers an adapter. An existing adapter with the same name is
// replaced and closed.
func (m *Manager) AddProvider(p providers.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.providers[p.GetName()]; ok {
		slog.Warn("replacing existing provider", "name", p.GetName())
		existing.Close()
	}
	m.providers[p.GetName()] = p

	slog.Info("provider registered",
		"name", p.GetName(),
		"configured", p.IsConfigured(),
		"total_providers", len(m.providers),
	)
}

// RemoveProvider removes a provider from the manager and closes it.
func (m *Manager) RemoveProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	provider, ok := m.providers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	if err := provider.Close(); err != nil {
		slog.Error("error closing provider", "name", name, "error", err)
	}
	delete(m.providers, name)
	return nil
}

// GetProvider returns a provider by name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return provider, nil
}

// GetProviderNames returns all registered provider names, sorted.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfiguredProviders returns the names of providers whose credential is
// present and plausible, sorted.
func (m *Manager) ConfiguredProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, p := range m.providers {
		if p.IsConfigured() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the total number of providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// Reload rebuilds every adapter from cfgs and swaps the set in one step.
// If any adapter fails to build, the current set is kept and the errors are
// returned joined.
func (m *Manager) Reload(cfgs map[string]config.ProviderConfig) error {
	next := make(map[string]providers.Provider, len(cfgs))
	var errs []error

	for name, c := range cfgs {
		p, err := NewProvider(name, c.Type, FromConfig(name, c))
		if err != nil {
			errs = append(errs, err)
			slog.Error("failed to load provider", "name", name, "error", err)
			continue
		}
		next[name] = p
	}

	if len(errs) > 0 {
		for _, p := range next {
			p.Close()
		}
		return fmt.Errorf("failed to load %d provider(s): %w", len(errs), errors.Join(errs...))
	}

	m.mu.Lock()
	previous := m.providers
	m.providers = next
	m.mu.Unlock()

	// Old adapters only drop idle connections; active streams finish normally.
	for _, p := range previous {
		p.Close()
	}

	slog.Info("providers loaded",
		"count", len(next),
		"configured", len(m.ConfiguredProviders()),
	)
	return nil
}

// Close closes all providers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]providers.Provider)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("provider manager closed")
	return nil
}

// GetHealthSummary returns a summary of provider health status.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := HealthSummary{
		Total:   len(m.providers),
		Details: make(map[string]providers.HealthReport, len(m.providers)),
	}

	for name, provider := range m.providers {
		report := providers.Report(provider)
		summary.Details[name] = report
		if report.Configured {
			summary.Configured++
		}
		if report.Healthy {
			summary.Healthy++
		}
	}
	summary.Unhealthy = summary.Total - summary.Healthy
	return summary
}

// HealthSummary provides an overview of provider health across the manager.
type HealthSummary struct {
	// Total is the total number of providers
	Total int `json:"total"`

	// Configured is the number of providers with a plausible credential
	Configured int `json:"configured"`

	// Healthy is the number of healthy providers
	Healthy int `json:"healthy"`

	// Unhealthy is the number of unhealthy providers
	Unhealthy int `json:"unhealthy"`

	// Details contains per-provider health information
	Details map[string]providers.HealthReport `json:"providers"`
}
