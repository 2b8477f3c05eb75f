package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 67108864 // 64MB
	DefaultCORSMaxAge      = 3600
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute

	// Provider defaults
	DefaultProviderTimeout = 60 * time.Second

	// Routing defaults
	DefaultRoutingProvider = "openai"
	DefaultRoutingModel    = "gpt-4o-mini"

	// Access defaults
	DefaultNewChatQuota = 3
	DefaultMessageQuota = 20

	// Rate limit defaults
	DefaultRequestsPerMinute    = 30
	DefaultMaxConcurrentStreams = 2
	DefaultRateLimitIdleTTL     = 15 * time.Minute

	// Conversation defaults
	DefaultSystemPrompt     = "You are a helpful assistant."
	DefaultAttachmentPrompt = "please analyze the attached content"

	// Storage defaults
	DefaultStorageBackend    = "sqlite"
	DefaultSQLitePath        = "data/parley.db"
	DefaultSQLiteDriver      = "sqlite"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultPostgresMaxConns  = 10

	// Attachment defaults
	DefaultAttachmentsBackend    = "local"
	DefaultAttachmentsLocalDir   = "data/uploads"
	DefaultAttachmentsMaxFiles   = 10
	DefaultDocumentFullReadBytes = 1 << 20   // 1 MiB
	DefaultDocumentPreviewBytes  = 100 << 10 // 100 KiB
	DefaultRetentionMaxAge       = 24 * time.Hour
	DefaultRetentionSchedule     = "0 * * * *"

	// Auth defaults
	DefaultTokenTTL = 24 * time.Hour
	DefaultLeeway   = 30 * time.Second

	// Billing defaults
	DefaultBillingProvider = "none"
	DefaultBillingTimeout  = 5 * time.Second

	// Secrets defaults
	DefaultSecretsCacheTTL = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "parley"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "parley"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingInsecure    = true
)

// BuiltinProviders lists the provider names registered even when the
// configuration file does not mention them. Their credentials usually come
// from the environment.
var BuiltinProviders = []string{"openai", "anthropic", "gemini", "grok", "deepseek"}

// DefaultMarkers returns the default router marker table, in priority order.
func DefaultMarkers() []MarkerConfig {
	return []MarkerConfig{
		{Marker: "claude", Provider: "anthropic", Premium: true},
		{Marker: "gemini", Provider: "gemini", Premium: true},
		{Marker: "grok", Provider: "grok", Premium: true},
		{Marker: "deepseek", Provider: "deepseek", Premium: false},
	}
}

// NewDefaultConfig returns a configuration with every default applied.
// LoadConfig decodes YAML on top of it, so boolean fields that default to
// true can still be switched off explicitly.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields that are
// already set are left untouched.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyProviderDefaults(cfg)
	applyRoutingDefaults(&cfg.Routing)

	if cfg.Access.NewChatQuota == 0 {
		cfg.Access.NewChatQuota = DefaultNewChatQuota
	}
	if cfg.Access.MessageQuota == 0 {
		cfg.Access.MessageQuota = DefaultMessageQuota
	}
	applyRateLimitDefaults(&cfg.Access.RateLimit)

	if cfg.Conversation.SystemPrompt == "" {
		cfg.Conversation.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Conversation.AttachmentPrompt == "" {
		cfg.Conversation.AttachmentPrompt = DefaultAttachmentPrompt
	}

	applyStorageDefaults(&cfg.Storage)
	applyAttachmentDefaults(&cfg.Attachments)

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}
	if cfg.Auth.Leeway == 0 {
		cfg.Auth.Leeway = DefaultLeeway
	}

	if cfg.Billing.Provider == "" {
		cfg.Billing.Provider = DefaultBillingProvider
	}
	if cfg.Billing.Timeout == 0 {
		cfg.Billing.Timeout = DefaultBillingTimeout
	}

	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}

	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
	if s.TLS.ReloadInterval == 0 {
		s.TLS.ReloadInterval = DefaultTLSReload
	}
}

// applyProviderDefaults makes sure every built-in provider has an entry and
// fills per-provider timeouts.
func applyProviderDefaults(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for _, name := range BuiltinProviders {
		if _, ok := cfg.Providers[name]; !ok {
			cfg.Providers[name] = ProviderConfig{}
		}
	}
	for name, p := range cfg.Providers {
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
		cfg.Providers[name] = p
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	if r.DefaultProvider == "" {
		r.DefaultProvider = DefaultRoutingProvider
	}
	if r.DefaultModel == "" {
		r.DefaultModel = DefaultRoutingModel
	}
	if len(r.Markers) == 0 {
		r.Markers = DefaultMarkers()
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Backend == "" {
		s.Backend = DefaultStorageBackend
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = DefaultSQLitePath
	}
	if s.SQLite.Driver == "" {
		s.SQLite.Driver = DefaultSQLiteDriver
	}
	if s.SQLite.BusyTimeout == 0 {
		s.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if s.Postgres.MaxConns == 0 {
		s.Postgres.MaxConns = DefaultPostgresMaxConns
	}
}

func applyAttachmentDefaults(a *AttachmentsConfig) {
	if a.Backend == "" {
		a.Backend = DefaultAttachmentsBackend
	}
	if a.LocalDir == "" {
		a.LocalDir = DefaultAttachmentsLocalDir
	}
	if a.MaxFiles == 0 {
		a.MaxFiles = DefaultAttachmentsMaxFiles
	}
	if a.Limits.DocumentFullReadBytes == 0 {
		a.Limits.DocumentFullReadBytes = DefaultDocumentFullReadBytes
	}
	if a.Limits.DocumentPreviewBytes == 0 {
		a.Limits.DocumentPreviewBytes = DefaultDocumentPreviewBytes
	}
	if a.Retention.MaxAge == 0 {
		a.Retention.MaxAge = DefaultRetentionMaxAge
	}
	if a.Retention.PruneSchedule == "" {
		a.Retention.PruneSchedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}

func applyRateLimitDefaults(cfg *RateLimitConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.MaxConcurrentStreams == 0 {
		cfg.MaxConcurrentStreams = DefaultMaxConcurrentStreams
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = DefaultRateLimitIdleTTL
	}
}
