package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mercator-hq/parley/pkg/providers"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is sent in the anthropic-version header.
	APIVersion = "2023-06-01"
)

// Descriptor returns the static Claude descriptor.
func Descriptor() providers.Descriptor {
	return providers.Descriptor{
		Name:         "anthropic",
		KeyPrefix:    "sk-ant-",
		DefaultModel: "claude-3-5-sonnet-20241022",
		Aliases: map[string]string{
			"claude":            "claude-3-5-sonnet-20241022",
			"claude-3-opus":     "claude-3-opus-20240229",
			"claude-3-sonnet":   "claude-3-sonnet-20240229",
			"claude-3-haiku":    "claude-3-haiku-20240307",
			"claude-3.5-sonnet": "claude-3-5-sonnet-20241022",
			"claude-3-5-sonnet": "claude-3-5-sonnet-20241022",
			"claude-3.5-haiku":  "claude-3-5-haiku-20241022",
			"claude-3-5-haiku":  "claude-3-5-haiku-20241022",
			"claude-3-7-sonnet": "claude-3-7-sonnet-20250219",
			"claude-sonnet-4":   "claude-sonnet-4-20250514",
			"claude-opus-4":     "claude-opus-4-20250514",
		},
		MaxImageBytes:   10 * providers.MiB,
		MaxRequestBytes: 32 * providers.MiB,
		NativeStreaming: true,
	}
}

// Provider implements providers.Provider for Anthropic's Messages API.
type Provider struct {
	*providers.HTTPProvider
	descriptor providers.Descriptor
	baseURL    string
}

var _ providers.Provider = (*Provider)(nil)

// NewProvider creates a Claude adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "anthropic"
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  fmt.Sprintf("invalid URL %q", baseURL),
		}
	}
	config.BaseURL = baseURL

	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		descriptor:   Descriptor().WithOverrides(config),
		baseURL:      baseURL,
	}, nil
}

// Descriptor returns the adapter descriptor with configured overrides applied.
func (p *Provider) Descriptor() providers.Descriptor {
	return p.descriptor
}

// IsConfigured reports whether the API key carries the expected prefix.
func (p *Provider) IsConfigured() bool {
	return providers.CredentialPlausible(p.Config().APIKey, p.descriptor.KeyPrefix)
}

// ResolveModel maps an alias to a canonical model id.
func (p *Provider) ResolveModel(alias string) string {
	return p.descriptor.ResolveAlias(alias)
}

// EncodeRequest renders the Messages API request body.
func (p *Provider) EncodeRequest(req *providers.CompletionRequest) ([]byte, error) {
	wire := transformRequest(req, p.ResolveModel(req.Model))
	if wire.MaxTokens == 0 {
		wire.MaxTokens = p.Config().MaxTokens
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}
	return body, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.Config().APIKey,
		"anthropic-version": APIVersion,
		"Content-Type":      "application/json",
	}
}

func (p *Provider) endpoint() string {
	return p.baseURL + "/v1/messages"
}

func (p *Provider) prepare(req *providers.CompletionRequest, stream bool) ([]byte, error) {
	if !p.IsConfigured() {
		return nil, &providers.ConfigError{
			Provider: p.GetName(),
			Field:    "api_key",
			Message:  "missing or malformed credential",
		}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	wireReq := *req
	wireReq.Stream = stream
	body, err := p.EncodeRequest(&wireReq)
	if err != nil {
		return nil, err
	}
	if err := p.CheckRequestSize(body, p.descriptor.MaxRequestBytes); err != nil {
		return nil, err
	}
	return body, nil
}

// SendCompletion performs a one-shot Messages API call.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	body, err := p.prepare(req, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var wire AnthropicResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.endpoint(), body, &wire, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wire)
	if err != nil {
		return nil, p.MalformedResponse(err.Error())
	}
	resp.Provider = p.GetName()
	resp.Latency = time.Since(start)
	return resp, nil
}

// StreamCompletion performs a streaming Messages API call.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	body, err := p.prepare(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.DoRequest(ctx, http.MethodPost, p.endpoint(), body, p.headers())
	if err != nil {
		return nil, err
	}

	chunks := make(chan *providers.StreamChunk, providers.StreamBufferSize)
	go func() {
		defer close(chunks)

		reader := newStreamReader(p.GetName(), resp.Body)
		defer reader.Close()

		for {
			delta, err := reader.Next(ctx)
			if errors.Is(err, io.EOF) {
				usage := reader.usage
				providers.SendChunk(ctx, chunks, &providers.StreamChunk{
					FinishReason: reader.stop,
					Usage:        &usage,
				})
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.WarnContext(ctx, "stream failed", "provider", p.GetName(), "error", err)
				providers.SendChunk(ctx, chunks, &providers.StreamChunk{Error: err})
				return
			}
			if !providers.SendChunk(ctx, chunks, &providers.StreamChunk{Delta: delta}) {
				return
			}
		}
	}()

	return chunks, nil
}

// validateRequest checks constraints the Messages API enforces.
func validateRequest(req *providers.CompletionRequest) error {
	for _, msg := range req.Messages {
		if msg.Role != providers.RoleSystem {
			return nil
		}
	}
	return &providers.ValidationError{
		Field:   "messages",
		Message: "at least one user or assistant message is required",
	}
}
