package providers

import (
	"context"
	"strings"
)

// Provider is the contract every LLM adapter implements. It normalizes one
// provider's request shape, authentication, image encoding and streaming format
// into the canonical message model.
//
// Adapters never retry. Every failure is translated into a *ProviderError (or a
// *ConfigError when the credential is unusable) and returned to the caller.
//
// Example usage:
//
//	p := openai.NewProvider(cfg)
//	if !p.IsConfigured() {
//	    return &providers.ConfigError{Provider: p.GetName(), Field: "api_key", Message: "missing"}
//	}
//
//	full, err := providers.Stream(ctx, p, &providers.CompletionRequest{
//	    Model:    "gpt-4o",
//	    Messages: history,
//	}, func(delta string) error {
//	    fmt.Print(delta)
//	    return nil
//	})
type Provider interface {
	// GetName returns the adapter's canonical name (e.g., "openai", "anthropic").
	GetName() string

	// Descriptor returns the static description of the adapter.
	Descriptor() Descriptor

	// IsConfigured reports whether the credential is present and plausible.
	// It never performs a network call.
	IsConfigured() bool

	// ResolveModel maps a user-facing alias to a canonical model id.
	// Unknown aliases resolve to the adapter's default model.
	ResolveModel(alias string) string

	// EncodeRequest renders the canonical request as the exact JSON body the
	// provider endpoint expects, including system-message placement and image
	// encoding.
	EncodeRequest(req *CompletionRequest) ([]byte, error)

	// SendCompletion performs a one-shot call and returns the full text.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion performs a streaming call. The returned channel yields
	// deltas in provider order and always ends with exactly one terminal chunk
	// (FinishReason or Error set) before it is closed. Cancelling ctx releases
	// the underlying connection.
	//
	// Adapters without native streaming perform the blocking call and emit the
	// whole text as a single chunk followed by the terminal chunk.
	StreamCompletion(ctx context.Context, req *CompletionRequest) (<-chan *StreamChunk, error)

	// GetHealth returns passive health information derived from recent requests.
	GetHealth() ProviderHealth

	// Close releases idle connections.
	Close() error
}

// Descriptor is the static per-provider record.
type Descriptor struct {
	// Name is the canonical provider name
	Name string

	// KeyPrefix is the credential prefix IsConfigured checks for
	KeyPrefix string

	// DefaultModel is returned by ResolveModel for unknown aliases
	DefaultModel string

	// Aliases maps lowercase aliases to canonical model ids
	Aliases map[string]string

	// MaxImageBytes is the per-image ceiling
	MaxImageBytes int64

	// MaxRequestBytes is the ceiling for an encoded request body (0 = none)
	MaxRequestBytes int64

	// NativeStreaming is false when streaming is simulated
	NativeStreaming bool
}

// Byte sizes used by descriptors.
const (
	KiB = 1 << 10
	MiB = 1 << 20
)

// CredentialPlausible reports whether key is non-empty and carries prefix.
func CredentialPlausible(key, prefix string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

// ResolveAlias looks alias up in the descriptor's table. A value that is
// already a canonical id passes through; anything else yields DefaultModel.
func (d Descriptor) ResolveAlias(alias string) string {
	key := strings.ToLower(strings.TrimSpace(alias))
	if key == "" {
		return d.DefaultModel
	}
	if id, ok := d.Aliases[key]; ok {
		return id
	}
	for _, id := range d.Aliases {
		if strings.EqualFold(id, key) {
			return id
		}
	}
	return d.DefaultModel
}

// WithOverrides returns a copy of d with the configured default model, key
// prefix and alias entries applied.
func (d Descriptor) WithOverrides(cfg ProviderConfig) Descriptor {
	out := d
	out.Aliases = make(map[string]string, len(d.Aliases)+len(cfg.Models))
	for k, v := range d.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range cfg.Models {
		out.Aliases[strings.ToLower(k)] = v
	}
	if cfg.DefaultModel != "" {
		out.DefaultModel = cfg.DefaultModel
	}
	if cfg.KeyPrefix != "" {
		out.KeyPrefix = cfg.KeyPrefix
	}
	return out
}
