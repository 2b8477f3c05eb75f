package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "90s"

providers:
  openai:
    api_key: "sk-test-key-123"
    timeout: "30s"
  local:
    type: "openai-compatible"
    base_url: "http://localhost:11434/v1"
    default_model: "llama3"

routing:
  default_model: "gpt-4o"
  markers:
    - marker: "llama"
      provider: "local"

storage:
  backend: "memory"

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 90*time.Second {
		t.Errorf("expected read timeout %v, got %v", 90*time.Second, cfg.Server.ReadTimeout)
	}

	openai := cfg.Providers["openai"]
	if openai.APIKey != "sk-test-key-123" {
		t.Errorf("expected API key %q, got %q", "sk-test-key-123", openai.APIKey)
	}
	if openai.Timeout != 30*time.Second {
		t.Errorf("expected timeout %v, got %v", 30*time.Second, openai.Timeout)
	}
	if _, ok := cfg.Providers["gemini"]; !ok {
		t.Error("expected built-in gemini provider even when not in file")
	}

	if len(cfg.Routing.Markers) != 1 || cfg.Routing.Markers[0].Marker != "llama" {
		t.Errorf("expected file marker table to replace defaults, got %+v", cfg.Routing.Markers)
	}
	if cfg.Routing.DefaultModel != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", cfg.Routing.DefaultModel)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics explicitly disabled")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("expected redact_pii default to survive partial telemetry section")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: "mongodb"
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "storage.backend" {
		t.Errorf("expected storage.backend error, got %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
providers:
  anthropic:
    api_key: "from-file"
`)

	t.Setenv("PARLEY_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("PARLEY_PROVIDERS_ANTHROPIC_API_KEY", "sk-ant-from-env")
	t.Setenv("PARLEY_PROVIDERS_GROK_API_KEY", "xai-from-env")
	t.Setenv("PARLEY_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PARLEY_ACCESS_MESSAGE_QUOTA", "50")
	t.Setenv("PARLEY_SERVER_REQUEST_TIMEOUT", "45s")
	t.Setenv("PARLEY_TELEMETRY_TRACING_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Providers["anthropic"].APIKey != "sk-ant-from-env" {
		t.Errorf("anthropic key not overridden")
	}
	if cfg.Providers["grok"].APIKey != "xai-from-env" {
		t.Errorf("grok key not applied to built-in provider")
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret not applied")
	}
	if cfg.Access.MessageQuota != 50 {
		t.Errorf("message quota = %d", cfg.Access.MessageQuota)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if !cfg.Telemetry.Tracing.Enabled {
		t.Error("tracing not enabled by env")
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("PARLEY_STORAGE_BACKEND", "memory")
	t.Setenv("PARLEY_PROVIDERS_OPENAI_API_KEY", "sk-env-only")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Providers["openai"].APIKey != "sk-env-only" {
		t.Error("openai key not applied")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	t.Setenv("PARLEY_SERVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("PARLEY_ACCESS_NEW_CHAT_QUOTA", "three")
	t.Setenv("PARLEY_TELEMETRY_METRICS_ENABLED", "maybe")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("invalid duration should be ignored, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Access.NewChatQuota != DefaultNewChatQuota {
		t.Errorf("invalid integer should be ignored, got %d", cfg.Access.NewChatQuota)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("invalid boolean should be ignored")
	}
}

func TestLoadConfigWithEnvOverrides_CustomProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  local-llm:
    type: "openai-compatible"
    base_url: "http://localhost:8000/v1"
    default_model: "mistral"
`)
	t.Setenv("PARLEY_PROVIDERS_LOCAL_LLM_API_KEY", "lk-123")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Providers["local-llm"].APIKey != "lk-123" {
		t.Errorf("custom provider key = %q", cfg.Providers["local-llm"].APIKey)
	}
}

func TestLoadConfigWithEnvOverrides_RateLimit(t *testing.T) {
	t.Setenv("PARLEY_ACCESS_RATE_LIMIT_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	rl := cfg.Access.RateLimit
	if !rl.Enabled {
		t.Fatal("expected rate limiting enabled")
	}
	if rl.RequestsPerMinute != DefaultRequestsPerMinute || rl.Burst != DefaultRequestsPerMinute {
		t.Errorf("rate = %d burst = %d, want defaults", rl.RequestsPerMinute, rl.Burst)
	}
	if rl.MaxConcurrentStreams != DefaultMaxConcurrentStreams {
		t.Errorf("max streams = %d", rl.MaxConcurrentStreams)
	}
	if rl.IdleTTL != DefaultRateLimitIdleTTL {
		t.Errorf("idle ttl = %v", rl.IdleTTL)
	}
}
