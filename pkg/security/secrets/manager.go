package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/parley/pkg/config"
)

// secretRefRegex matches ${secret:name}.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

const defaultCacheSize = 256

// Manager tries its providers in order and caches what they return.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a manager over providers, tried in the given order.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    logger.With("component", "secrets"),
	}
}

// NewManagerFromConfig builds the file provider (when cfg.Dir is set) ahead
// of the environment provider.
func NewManagerFromConfig(cfg config.SecretsConfig, logger *slog.Logger) (*Manager, error) {
	var providers []SecretProvider
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir, cfg.Watch, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))

	return NewManager(providers, CacheConfig{
		Enabled: cfg.CacheTTL > 0,
		TTL:     cfg.CacheTTL,
		MaxSize: defaultCacheSize,
	}, logger), nil
}

// GetSecret returns the value from the cache or the first provider that has
// it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var errs []error
	for _, p := range m.providers {
		if !p.Supports(name) {
			continue
		}
		value, err := p.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Provider(), err))
			continue
		}
		m.cache.Set(name, value)
		m.logger.Debug("secret resolved", "name", redactSecretName(name), "provider", p.Provider())
		return value, nil
	}

	if len(errs) == 0 {
		return "", fmt.Errorf("secret %q: %w", name, ErrNotFound)
	}
	return "", fmt.Errorf("secret %q: %w", name, errors.Join(errs...))
}

// ResolveReferences replaces every ${secret:name} in input. References that
// cannot be resolved are left in place and reported in the error.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var failed []string
	var errs []error

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(secretRefRegex.FindStringSubmatch(match)[1])
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			failed = append(failed, name)
			errs = append(errs, err)
			return match
		}
		return value
	})

	if len(errs) > 0 {
		return output, fmt.Errorf("failed to resolve secret %s: %w", strings.Join(failed, ", "), errors.Join(errs...))
	}
	return output, nil
}

// Refresh drops the manager's cache and those of refreshable providers.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []error
	for _, p := range m.providers {
		if r, ok := p.(RefreshableProvider); ok {
			if err := r.Refresh(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.Provider(), err))
			}
		}
	}
	m.cache.Clear()
	return errors.Join(errs...)
}

// Close releases providers that hold resources.
func (m *Manager) Close() error {
	var errs []error
	for _, p := range m.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// redactSecretName keeps the first and last two characters for logs.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
