// Package grok implements the xAI Grok adapter. The xAI API speaks the
// OpenAI chat completions protocol, so the adapter is a generic profile.
package grok

import (
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/generic"
)

// DefaultBaseURL is the xAI API endpoint.
const DefaultBaseURL = "https://api.x.ai/v1"

// Descriptor returns the static Grok descriptor.
func Descriptor() providers.Descriptor {
	return providers.Descriptor{
		Name:         "grok",
		KeyPrefix:    "xai-",
		DefaultModel: "grok-2-latest",
		Aliases: map[string]string{
			"grok":          "grok-2-latest",
			"grok-2":        "grok-2-latest",
			"grok-2-latest": "grok-2-latest",
			"grok-beta":     "grok-beta",
			"grok-vision":   "grok-2-vision-1212",
			"grok-2-vision": "grok-2-vision-1212",
			"grok-3":        "grok-3",
			"grok-3-mini":   "grok-3-mini",
		},
		MaxImageBytes:   20 * providers.MiB,
		MaxRequestBytes: 50 * providers.MiB,
		NativeStreaming: true,
	}
}

// NewProvider creates a Grok adapter.
func NewProvider(config providers.ProviderConfig) (*generic.Provider, error) {
	if config.Name == "" {
		config.Name = "grok"
	}
	return generic.NewProvider(config, generic.Profile{
		Descriptor:     Descriptor(),
		DefaultBaseURL: DefaultBaseURL,
	})
}
