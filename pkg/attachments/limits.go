package attachments

import (
	"strings"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
)

// Limits are the size thresholds the processor enforces.
type Limits struct {
	// DocumentFullReadBytes is the largest document read in full.
	DocumentFullReadBytes int64

	// DocumentPreviewBytes is how much of a larger document is read.
	DocumentPreviewBytes int64

	// ImageMaxBytes maps provider names to their per-image ceiling.
	ImageMaxBytes map[string]int64

	// DefaultImageMaxBytes applies to providers missing from ImageMaxBytes.
	DefaultImageMaxBytes int64
}

// DefaultImageCeilings returns the built-in per-provider image ceilings.
func DefaultImageCeilings() map[string]int64 {
	return map[string]int64{
		"anthropic": 10 * providers.MiB,
		"gemini":    10 * providers.MiB,
		"openai":    20 * providers.MiB,
		"grok":      20 * providers.MiB,
		"deepseek":  20 * providers.MiB,
	}
}

// DefaultLimits returns the built-in thresholds.
func DefaultLimits() Limits {
	return Limits{
		DocumentFullReadBytes: config.DefaultDocumentFullReadBytes,
		DocumentPreviewBytes:  config.DefaultDocumentPreviewBytes,
		ImageMaxBytes:         DefaultImageCeilings(),
		DefaultImageMaxBytes:  10 * providers.MiB,
	}
}

// LimitsFromConfig applies configured overrides on top of the defaults.
func LimitsFromConfig(cfg config.AttachmentLimitsConfig) Limits {
	l := DefaultLimits()
	if cfg.DocumentFullReadBytes > 0 {
		l.DocumentFullReadBytes = cfg.DocumentFullReadBytes
	}
	if cfg.DocumentPreviewBytes > 0 {
		l.DocumentPreviewBytes = cfg.DocumentPreviewBytes
	}
	for name, n := range cfg.ImageMaxBytes {
		if n > 0 {
			l.ImageMaxBytes[strings.ToLower(name)] = n
		}
	}
	return l
}

// WithDescriptor registers the image ceiling declared by an adapter, unless a
// ceiling for that provider is already set.
func (l Limits) WithDescriptor(d providers.Descriptor) Limits {
	if d.Name == "" || d.MaxImageBytes <= 0 {
		return l
	}
	if _, ok := l.ImageMaxBytes[d.Name]; !ok {
		l.ImageMaxBytes[d.Name] = d.MaxImageBytes
	}
	return l
}

// ImageCeiling returns the per-image ceiling for provider.
func (l Limits) ImageCeiling(provider string) int64 {
	if n, ok := l.ImageMaxBytes[strings.ToLower(provider)]; ok {
		return n
	}
	return l.DefaultImageMaxBytes
}
