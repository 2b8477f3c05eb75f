package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// The process-wide configuration. The pointer is swapped whole on reload,
// so a *Config obtained from GetConfig is never mutated underneath its
// reader.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once
	initErr  error
)

// Initialize loads the configuration at path with environment overrides and
// installs it. Only the first call loads; later calls return the first
// call's result.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the installed configuration, or nil before a successful
// Initialize.
func GetConfig() *Config {
	return current.Load()
}

// ReloadConfig loads path again and installs the result. On error the
// installed configuration is kept.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return cfg, nil
}
