package providerfactory

import (
	"fmt"
	"log/slog"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/anthropic"
	"mercator-hq/parley/pkg/providers/deepseek"
	"mercator-hq/parley/pkg/providers/gemini"
	"mercator-hq/parley/pkg/providers/generic"
	"mercator-hq/parley/pkg/providers/grok"
	"mercator-hq/parley/pkg/providers/openai"
	"mercator-hq/parley/pkg/telemetry/logging"
)

// TypeOpenAICompatible selects the generic adapter for a provider name that
// is not built in.
const TypeOpenAICompatible = "openai-compatible"

// NewProvider creates the adapter for the named provider.
//
// Built-in names select their adapter directly:
//   - "openai": OpenAI chat completions
//   - "anthropic": Anthropic Messages API
//   - "gemini": Google Gemini generateContent (simulated streaming)
//   - "grok": xAI, OpenAI-compatible
//   - "deepseek": Deepseek, OpenAI-compatible
//
// Any other name requires kind "openai-compatible" and is served by the
// generic adapter with the configured base URL and default model.
//
// Example:
//
//	provider, err := NewProvider("anthropic", "", providers.ProviderConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
func NewProvider(name, kind string, cfg providers.ProviderConfig) (providers.Provider, error) {
	cfg.Name = name

	slog.Debug("creating provider",
		"name", name,
		"type", kind,
		"base_url", cfg.BaseURL,
		"api_key", logging.RedactAPIKey(cfg.APIKey),
	)

	var (
		provider providers.Provider
		err      error
	)

	switch name {
	case "openai":
		provider, err = wrap(openai.NewProvider(cfg))
	case "anthropic":
		provider, err = wrap(anthropic.NewProvider(cfg))
	case "gemini":
		provider, err = wrap(gemini.NewProvider(cfg))
	case "grok":
		provider, err = wrap(grok.NewProvider(cfg))
	case "deepseek":
		provider, err = wrap(deepseek.NewProvider(cfg))
	default:
		if kind != TypeOpenAICompatible {
			return nil, &providers.ConfigError{
				Provider: name,
				Field:    "type",
				Message:  fmt.Sprintf("unsupported provider type: %q (supported: %s)", kind, TypeOpenAICompatible),
			}
		}
		provider, err = wrap(generic.NewProvider(cfg, generic.Profile{
			Descriptor: providers.Descriptor{
				Name:         name,
				DefaultModel: cfg.DefaultModel,
			},
		}))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", name, err)
	}

	slog.Debug("provider created",
		"name", name,
		"configured", provider.IsConfigured(),
		"default_model", provider.Descriptor().DefaultModel,
	)
	return provider, nil
}

// wrap converts a concrete constructor result to the interface without
// producing a typed nil on error.
func wrap[P providers.Provider](p P, err error) (providers.Provider, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FromConfig converts a configuration file entry into an adapter config.
func FromConfig(name string, c config.ProviderConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:         name,
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		KeyPrefix:    c.KeyPrefix,
		DefaultModel: c.DefaultModel,
		Models:       c.Models,
		MaxTokens:    c.MaxTokens,
		Timeout:      c.Timeout,
	}
}
