package providerfactory

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
)

func TestNewProvider_BuiltIn(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultModel string
		streaming    bool
		imageCeiling int64
	}{
		{"openai", "sk-test", "gpt-4o-mini", true, 20 * providers.MiB},
		{"anthropic", "sk-ant-test", "claude-3-5-sonnet-20241022", true, 10 * providers.MiB},
		{"gemini", "AIzaTest", "gemini-1.5-flash", false, 10 * providers.MiB},
		{"grok", "xai-test", "grok-2-latest", true, 20 * providers.MiB},
		{"deepseek", "sk-test", "deepseek-chat", true, 20 * providers.MiB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.name, "", providers.ProviderConfig{
				APIKey:  tt.key,
				Timeout: 30 * time.Second,
			})
			if err != nil {
				t.Fatalf("NewProvider() failed: %v", err)
			}
			defer provider.Close()

			if provider.GetName() != tt.name {
				t.Errorf("expected provider name %s, got %s", tt.name, provider.GetName())
			}
			if !provider.IsConfigured() {
				t.Error("expected provider to be configured")
			}
			d := provider.Descriptor()
			if d.DefaultModel != tt.defaultModel {
				t.Errorf("default model = %q, want %q", d.DefaultModel, tt.defaultModel)
			}
			if d.NativeStreaming != tt.streaming {
				t.Errorf("native streaming = %v, want %v", d.NativeStreaming, tt.streaming)
			}
			if d.MaxImageBytes != tt.imageCeiling {
				t.Errorf("image ceiling = %d, want %d", d.MaxImageBytes, tt.imageCeiling)
			}
		})
	}
}

func TestNewProvider_OpenAICompatible(t *testing.T) {
	provider, err := NewProvider("ollama", TypeOpenAICompatible, providers.ProviderConfig{
		BaseURL:      "http://localhost:11434/v1",
		DefaultModel: "llama3",
	})
	if err != nil {
		t.Fatalf("NewProvider() failed: %v", err)
	}
	defer provider.Close()

	if provider.GetName() != "ollama" {
		t.Errorf("name = %q", provider.GetName())
	}
	if provider.ResolveModel("whatever") != "llama3" {
		t.Errorf("ResolveModel() = %q", provider.ResolveModel("whatever"))
	}
}

func TestNewProvider_UnsupportedType(t *testing.T) {
	_, err := NewProvider("mystery", "soap", providers.ProviderConfig{})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	var cerr *providers.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cerr.Field != "type" {
		t.Errorf("field = %q", cerr.Field)
	}
}

func TestNewProvider_UnconfiguredStillBuilds(t *testing.T) {
	provider, err := NewProvider("anthropic", "", providers.ProviderConfig{APIKey: "sk-wrong-prefix"})
	if err != nil {
		t.Fatalf("NewProvider() failed: %v", err)
	}
	if provider.IsConfigured() {
		t.Error("a key without the sk-ant- prefix must not count as configured")
	}
}

func TestFromConfig(t *testing.T) {
	c := config.ProviderConfig{
		BaseURL:      "https://example.test/v1",
		APIKey:       "sk-x",
		KeyPrefix:    "sk-",
		DefaultModel: "gpt-4o",
		Models:       map[string]string{"fast": "gpt-4o-mini"},
		MaxTokens:    512,
		Timeout:      7 * time.Second,
	}
	pc := FromConfig("openai", c)

	if pc.Name != "openai" || pc.BaseURL != c.BaseURL || pc.APIKey != c.APIKey {
		t.Errorf("unexpected conversion %+v", pc)
	}
	if pc.Models["fast"] != "gpt-4o-mini" || pc.MaxTokens != 512 || pc.Timeout != 7*time.Second {
		t.Errorf("unexpected conversion %+v", pc)
	}
}
