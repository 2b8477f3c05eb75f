package generic

import (
	"log/slog"

	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/openai"
)

// Profile describes a third-party OpenAI-compatible backend.
type Profile struct {
	// Descriptor is the static descriptor (name, key prefix, aliases, ceilings)
	Descriptor providers.Descriptor

	// DefaultBaseURL is used when the config does not set a base URL
	DefaultBaseURL string
}

// Provider is an adapter for an OpenAI-compatible third party. It reuses the
// OpenAI wire format with its own endpoint, credential prefix and model table.
type Provider struct {
	*openai.Provider
}

var _ providers.Provider = (*Provider)(nil)

// NewProvider creates an adapter for the backend described by profile.
func NewProvider(config providers.ProviderConfig, profile Profile) (*Provider, error) {
	if config.Name == "" {
		config.Name = profile.Descriptor.Name
	}
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.BaseURL == "" && profile.DefaultBaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "base URL is required for an OpenAI-compatible provider",
		}
	}

	desc := profile.Descriptor
	if config.APIKey == "" && desc.KeyPrefix == "" && config.KeyPrefix == "" {
		// Self-hosted endpoints (Ollama, vLLM, LM Studio) accept any bearer.
		config.APIKey = "not-required"
	}
	if desc.Name == "" {
		desc.Name = config.Name
	}
	if desc.MaxImageBytes == 0 {
		desc.MaxImageBytes = 20 * providers.MiB
	}
	desc.NativeStreaming = true

	inner, err := openai.NewCompatible(config, desc, profile.DefaultBaseURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("OpenAI-compatible provider initialized",
		"provider", config.Name,
		"base_url", inner.Config().BaseURL,
	)

	return &Provider{Provider: inner}, nil
}
