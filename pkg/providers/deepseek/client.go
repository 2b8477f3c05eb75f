// Package deepseek implements the Deepseek adapter on top of the generic
// OpenAI-compatible provider.
package deepseek

import (
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/generic"
)

// DefaultBaseURL is the Deepseek API endpoint.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// Descriptor returns the static Deepseek descriptor. Deepseek chat models do
// not accept images; the ceiling matches the OpenAI-compatible default and the
// API rejects image parts with a 400 that surfaces as a ProviderError.
func Descriptor() providers.Descriptor {
	return providers.Descriptor{
		Name:         "deepseek",
		KeyPrefix:    "sk-",
		DefaultModel: "deepseek-chat",
		Aliases: map[string]string{
			"deepseek":          "deepseek-chat",
			"deepseek-chat":     "deepseek-chat",
			"deepseek-v3":       "deepseek-chat",
			"deepseek-reasoner": "deepseek-reasoner",
			"deepseek-r1":       "deepseek-reasoner",
			"deepseek-coder":    "deepseek-coder",
		},
		MaxImageBytes:   20 * providers.MiB,
		MaxRequestBytes: 16 * providers.MiB,
		NativeStreaming: true,
	}
}

// NewProvider creates a Deepseek adapter.
func NewProvider(config providers.ProviderConfig) (*generic.Provider, error) {
	if config.Name == "" {
		config.Name = "deepseek"
	}
	return generic.NewProvider(config, generic.Profile{
		Descriptor:     Descriptor(),
		DefaultBaseURL: DefaultBaseURL,
	})
}
