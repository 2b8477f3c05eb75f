package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// DefaultBaseURL is the Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Descriptor returns the static Gemini descriptor.
func Descriptor() providers.Descriptor {
	return providers.Descriptor{
		Name:         "gemini",
		KeyPrefix:    "AIza",
		DefaultModel: "gemini-1.5-flash",
		Aliases: map[string]string{
			"gemini":           "gemini-1.5-flash",
			"gemini-pro":       "gemini-1.5-pro",
			"gemini-1.5-pro":   "gemini-1.5-pro",
			"gemini-1.5-flash": "gemini-1.5-flash",
			"gemini-2.0-flash": "gemini-2.0-flash",
			"gemini-2.5-pro":   "gemini-2.5-pro",
			"gemini-2.5-flash": "gemini-2.5-flash",
		},
		MaxImageBytes:   10 * providers.MiB,
		MaxRequestBytes: 20 * providers.MiB,
		NativeStreaming: false,
	}
}

// Provider implements providers.Provider for the Gemini generateContent API.
// Streaming is simulated.
type Provider struct {
	*providers.HTTPProvider
	descriptor providers.Descriptor
	baseURL    string
}

var _ providers.Provider = (*Provider)(nil)

// NewProvider creates a Gemini adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = "gemini"
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

// EncodeRequest renders the generateContent request body. The model is part
// of the URL, not the body.
func (p *Provider) EncodeRequest(req *providers.CompletionRequest) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.Config().MaxTokens
	}
	body, err := json.Marshal(transformRequest(req, maxTokens))
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}
	return body, nil
}

func (p *Provider) endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(model))
}

// SendCompletion performs a blocking generateContent call.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if !p.IsConfigured() {
		return nil, &providers.ConfigError{
			Provider: p.GetName(),
			Field:    "api_key",
			Message:  "missing or malformed credential",
		}
	}

	body, err := p.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := p.CheckRequestSize(body, p.descriptor.MaxRequestBytes); err != nil {
		return nil, err
	}

	model := p.ResolveModel(req.Model)
	headers := map[string]string{
		"x-goog-api-key": p.Config().APIKey,
		"Content-Type":   "application/json",
	}

	start := time.Now()
	var wire GenerateContentResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.endpoint(model), body, &wire, headers); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wire, model)
	if err != nil {
		return nil, p.MalformedResponse(err.Error())
	}
	resp.Provider = p.GetName()
	resp.Latency = time.Since(start)
	return resp, nil
}

// StreamCompletion simulates streaming: the blocking call runs first and the
// full text is delivered as a single chunk.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	if !p.IsConfigured() {
		return nil, &providers.ConfigError{
			Provider: p.GetName(),
			Field:    "api_key",
			Message:  "missing or malformed credential",
		}
	}
	return providers.SimulateStream(ctx, func(ctx context.Context) (*providers.CompletionResponse, error) {
		return p.SendCompletion(ctx, req)
	}), nil
}
