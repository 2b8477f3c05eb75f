package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PARLEY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, remaining zero values are
// defaulted and the result is validated. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention PARLEY_SECTION_FIELD (e.g., PARLEY_SERVER_LISTEN_ADDRESS) and
// always take precedence over the file.
//
// An empty path skips the file and starts from the defaults, so a deployment
// can be configured from the environment alone.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	// Markers replace the default table wholesale when present.
	cfg.Routing.Markers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	envInt64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Providers: built-ins plus any name present in the file
	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}

	// Routing
	envString("ROUTING_DEFAULT_PROVIDER", &cfg.Routing.DefaultProvider)
	envString("ROUTING_DEFAULT_MODEL", &cfg.Routing.DefaultModel)

	// Access
	envInt("ACCESS_NEW_CHAT_QUOTA", &cfg.Access.NewChatQuota)
	envInt("ACCESS_MESSAGE_QUOTA", &cfg.Access.MessageQuota)
	envBool("ACCESS_RATE_LIMIT_ENABLED", &cfg.Access.RateLimit.Enabled)
	envInt("ACCESS_RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.Access.RateLimit.RequestsPerMinute)

	// Conversation
	envString("CONVERSATION_SYSTEM_PROMPT", &cfg.Conversation.SystemPrompt)

	// Storage
	envString("STORAGE_BACKEND", &cfg.Storage.Backend)
	envString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	envString("STORAGE_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	envBool("STORAGE_POSTGRES_MIGRATE_ON_START", &cfg.Storage.Postgres.MigrateOnStart)

	// Attachments
	envString("ATTACHMENTS_BACKEND", &cfg.Attachments.Backend)
	envString("ATTACHMENTS_LOCAL_DIR", &cfg.Attachments.LocalDir)
	envString("ATTACHMENTS_S3_BUCKET", &cfg.Attachments.S3.Bucket)
	envString("ATTACHMENTS_S3_REGION", &cfg.Attachments.S3.Region)
	envString("ATTACHMENTS_S3_PREFIX", &cfg.Attachments.S3.Prefix)
	envString("ATTACHMENTS_S3_ENDPOINT", &cfg.Attachments.S3.Endpoint)
	envString("ATTACHMENTS_S3_ACCESS_KEY_ID", &cfg.Attachments.S3.AccessKeyID)
	envString("ATTACHMENTS_S3_SECRET_ACCESS_KEY", &cfg.Attachments.S3.SecretAccessKey)
	envDuration("ATTACHMENTS_RETENTION_MAX_AGE", &cfg.Attachments.Retention.MaxAge)

	// Auth
	envString("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("AUTH_ISSUER", &cfg.Auth.Issuer)
	envDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)

	// Billing
	envString("BILLING_PROVIDER", &cfg.Billing.Provider)
	envString("BILLING_STRIPE_API_KEY", &cfg.Billing.StripeAPIKey)
	envDuration("BILLING_TIMEOUT", &cfg.Billing.Timeout)

	// Secrets
	envString("SECRETS_DIR", &cfg.Secrets.Dir)
	envString("SECRETS_ENV_PREFIX", &cfg.Secrets.EnvPrefix)

	// Telemetry
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format PARLEY_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name with dashes replaced by underscores.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	provider := cfg.Providers[providerName]
	prefix := "PROVIDERS_" + strings.ToUpper(strings.ReplaceAll(providerName, "-", "_")) + "_"

	envString(prefix+"BASE_URL", &provider.BaseURL)
	envString(prefix+"API_KEY", &provider.APIKey)
	envString(prefix+"DEFAULT_MODEL", &provider.DefaultModel)
	envDuration(prefix+"TIMEOUT", &provider.Timeout)
	envInt(prefix+"MAX_TOKENS", &provider.MaxTokens)

	cfg.Providers[providerName] = provider
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
