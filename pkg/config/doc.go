// Package config provides configuration management for Parley.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file (or none) with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PARLEY_SECTION_FIELD:
//
//   - PARLEY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - PARLEY_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - PARLEY_AUTH_JWT_SECRET overrides auth.jwt_secret
//   - PARLEY_STORAGE_POSTGRES_DSN overrides storage.postgres.dsn
//
// Precedence, later overrides earlier: defaults, YAML file, environment.
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and calls
// ReloadConfig followed by the registered callbacks. The server uses it to
// swap provider credentials and the log level without a restart.
package config
