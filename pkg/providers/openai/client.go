package openai

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

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Descriptor returns the static OpenAI descriptor.
func Descriptor() providers.Descriptor {
	return providers.Descriptor{
		Name:         "openai",
		KeyPrefix:    "sk-",
		DefaultModel: "gpt-4o-mini",
		Aliases: map[string]string{
			"gpt-3.5-turbo": "gpt-3.5-turbo",
			"gpt-3.5":       "gpt-3.5-turbo",
			"gpt-4":         "gpt-4",
			"gpt-4-turbo":   "gpt-4-turbo",
			"gpt-4o":        "gpt-4o",
			"gpt-4o-mini":   "gpt-4o-mini",
			"gpt-4.1":       "gpt-4.1",
			"gpt-4.1-mini":  "gpt-4.1-mini",
		},
		MaxImageBytes:   20 * providers.MiB,
		MaxRequestBytes: 50 * providers.MiB,
		NativeStreaming: true,
	}
}

// Provider implements providers.Provider for the OpenAI chat completions API
// and for any third party that speaks the same protocol.
type Provider struct {
	*providers.HTTPProvider
	descriptor providers.Descriptor
	baseURL    string
}

var _ providers.Provider = (*Provider)(nil)

// NewProvider creates an OpenAI adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "openai"
	}
	return NewCompatible(config, Descriptor(), DefaultBaseURL)
}

// NewCompatible creates an adapter for an OpenAI-compatible endpoint described
// by desc. defaultBaseURL is used when the config does not set one.
func NewCompatible(config providers.ProviderConfig, desc providers.Descriptor, defaultBaseURL string) (*Provider, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  fmt.Sprintf("invalid URL %q", baseURL),
		}
	}
	if config.Name == "" {
		config.Name = desc.Name
	}
	config.BaseURL = baseURL

	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		descriptor:   desc.WithOverrides(config),
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

// EncodeRequest renders the chat completions request body.
func (p *Provider) EncodeRequest(req *providers.CompletionRequest) ([]byte, error) {
	wire := transformRequest(req, p.ResolveModel(req.Model))
	if wire.MaxTokens == 0 {
		wire.MaxTokens = p.Config().MaxTokens
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", p.GetName(), err)
	}
	return body, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.Config().APIKey,
		"Content-Type":  "application/json",
	}
}

func (p *Provider) endpoint() string {
	return p.baseURL + "/chat/completions"
}

func (p *Provider) prepare(req *providers.CompletionRequest, stream bool) ([]byte, error) {
	if !p.IsConfigured() {
		return nil, &providers.ConfigError{
			Provider: p.GetName(),
			Field:    "api_key",
			Message:  "missing or malformed credential",
		}
	}
	if len(req.Messages) == 0 {
		return nil, &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
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

// SendCompletion performs a one-shot chat completion.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	body, err := p.prepare(req, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var wire OpenAIResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.endpoint(), body, &wire, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wire)
	if err != nil {
		return nil, p.MalformedResponse(err.Error())
	}
	resp.Provider = p.GetName()
	resp.Latency = time.Since(start)

	slog.DebugContext(ctx, "completion received",
		"provider", p.GetName(),
		"model", resp.Model,
		"latency_ms", resp.Latency.Milliseconds(),
	)
	return resp, nil
}

// StreamCompletion performs a streaming chat completion.
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
	go p.pump(ctx, newStreamReader(p.GetName(), resp.Body), chunks)
	return chunks, nil
}

func (p *Provider) pump(ctx context.Context, reader *streamReader, chunks chan<- *providers.StreamChunk) {
	defer close(chunks)
	defer reader.Close()

	for {
		delta, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			providers.SendChunk(ctx, chunks, &providers.StreamChunk{
				FinishReason: reader.finish,
				Usage:        reader.usage,
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
}
