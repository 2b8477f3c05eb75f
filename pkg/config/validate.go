package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together. Credentials are never required here: a provider without
// a key is simply reported as not configured at request time.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing, cfg.Providers)...)
	errs = append(errs, validateAccess(&cfg.Access)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateAttachments(&cfg.Attachments)...)
	errs = append(errs, validateBilling(&cfg.Billing)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be non-negative"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "request timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "cert file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}
	if v := cfg.TLS.MinVersion; v != "" && v != "1.2" && v != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", v),
		})
	}
	return errs
}

var builtin = map[string]bool{
	"openai": true, "anthropic": true, "gemini": true, "grok": true, "deepseek": true,
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for name, provider := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		if provider.BaseURL != "" {
			if _, err := url.ParseRequestURI(provider.BaseURL); err != nil {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid URL format: %v", err),
				})
			}
		}

		if !builtin[name] {
			if provider.Type != "openai-compatible" {
				errs = append(errs, FieldError{
					Field:   prefix + ".type",
					Message: fmt.Sprintf("unsupported provider type %q: must be 'openai-compatible'", provider.Type),
				})
			}
			if provider.BaseURL == "" {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL is required"})
			}
			if provider.DefaultModel == "" {
				errs = append(errs, FieldError{Field: prefix + ".default_model", Message: "default model is required"})
			}
		}

		if provider.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		if provider.MaxTokens < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_tokens", Message: "max tokens must be non-negative"})
		}
	}

	return errs
}

func validateRouting(cfg *RoutingConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if _, ok := providers[cfg.DefaultProvider]; !ok {
		errs = append(errs, FieldError{
			Field:   "routing.default_provider",
			Message: fmt.Sprintf("provider %q is not defined", cfg.DefaultProvider),
		})
	}

	seen := make(map[string]bool, len(cfg.Markers))
	for i, m := range cfg.Markers {
		field := fmt.Sprintf("routing.markers[%d]", i)
		marker := strings.ToLower(strings.TrimSpace(m.Marker))
		if marker == "" {
			errs = append(errs, FieldError{Field: field + ".marker", Message: "marker is required"})
			continue
		}
		if seen[marker] {
			errs = append(errs, FieldError{Field: field + ".marker", Message: fmt.Sprintf("duplicate marker %q", marker)})
		}
		seen[marker] = true
		if _, ok := providers[m.Provider]; !ok {
			errs = append(errs, FieldError{
				Field:   field + ".provider",
				Message: fmt.Sprintf("provider %q is not defined", m.Provider),
			})
		}
	}
	return errs
}

func validateAccess(cfg *AccessConfig) []FieldError {
	var errs []FieldError
	if cfg.NewChatQuota < 0 {
		errs = append(errs, FieldError{Field: "access.new_chat_quota", Message: "quota must be non-negative"})
	}
	if cfg.MessageQuota < 0 {
		errs = append(errs, FieldError{Field: "access.message_quota", Message: "quota must be non-negative"})
	}

	rl := cfg.RateLimit
	if rl.Enabled {
		if rl.RequestsPerMinute <= 0 {
			errs = append(errs, FieldError{Field: "access.rate_limit.requests_per_minute", Message: "must be positive"})
		}
		if rl.Burst <= 0 {
			errs = append(errs, FieldError{Field: "access.rate_limit.burst", Message: "must be positive"})
		}
		if rl.MaxConcurrentStreams < 0 {
			errs = append(errs, FieldError{Field: "access.rate_limit.max_concurrent_streams", Message: "must be non-negative"})
		}
		if rl.IdleTTL < 0 {
			errs = append(errs, FieldError{Field: "access.rate_limit.idle_ttl", Message: "must be non-negative"})
		}
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "storage.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "storage.postgres.dsn", Message: "dsn is required for the postgres backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Backend),
		})
	}
	return errs
}

func validateAttachments(cfg *AttachmentsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			errs = append(errs, FieldError{Field: "attachments.local_dir", Message: "directory is required for the local backend"})
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{Field: "attachments.s3.bucket", Message: "bucket is required for the s3 backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "attachments.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'local' or 's3'", cfg.Backend),
		})
	}

	if cfg.Limits.DocumentPreviewBytes > cfg.Limits.DocumentFullReadBytes {
		errs = append(errs, FieldError{
			Field:   "attachments.limits.document_preview_bytes",
			Message: "preview must not exceed the full-read threshold",
		})
	}
	for name, limit := range cfg.Limits.ImageMaxBytes {
		if limit <= 0 {
			errs = append(errs, FieldError{
				Field:   "attachments.limits.image_max_bytes." + name,
				Message: "ceiling must be positive",
			})
		}
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, FieldError{Field: "attachments.max_files", Message: "max files must be non-negative"})
	}

	if cfg.Retention.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "attachments.retention.max_age", Message: "max age must be non-negative"})
	}
	if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "attachments.retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	return errs
}

func validateBilling(cfg *BillingConfig) []FieldError {
	switch cfg.Provider {
	case "none", "stripe":
		return nil
	default:
		return []FieldError{{
			Field:   "billing.provider",
			Message: fmt.Sprintf("invalid provider %q: must be 'none' or 'stripe'", cfg.Provider),
		}}
	}
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
