package providers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"mercator-hq/parley/pkg/providers"
)

// FakeProvider is a scripted Provider for tests that sit above the adapters
// (routing, orchestration, handlers). It streams the configured deltas, or
// fails with Err after them, and records every request it receives.
type FakeProvider struct {
	Name       string
	Configured bool
	Desc       providers.Descriptor

	// Deltas are streamed in order. SendCompletion returns their concatenation.
	Deltas []string

	// Err, when set, is delivered as the terminal chunk after Deltas.
	Err error

	// StartErr, when set, is returned by StreamCompletion before any chunk.
	StartErr error

	// Block makes StreamCompletion wait for ctx cancellation after Deltas.
	Block bool

	mu       sync.Mutex
	requests []*providers.CompletionRequest
	health   providers.ProviderHealth
}

// NewFakeProvider creates a configured fake that answers with deltas.
func NewFakeProvider(name string, deltas ...string) *FakeProvider {
	return &FakeProvider{
		Name:       name,
		Configured: true,
		Deltas:     deltas,
		Desc: providers.Descriptor{
			Name:            name,
			DefaultModel:    name + "-default",
			Aliases:         map[string]string{},
			MaxImageBytes:   20 * providers.MiB,
			NativeStreaming: true,
		},
		health: providers.ProviderHealth{IsHealthy: true},
	}
}

// WithAliases adds alias entries to the fake's descriptor.
func (f *FakeProvider) WithAliases(aliases map[string]string) *FakeProvider {
	for k, v := range aliases {
		f.Desc.Aliases[k] = v
	}
	return f
}

func (f *FakeProvider) GetName() string                  { return f.Name }
func (f *FakeProvider) Descriptor() providers.Descriptor { return f.Desc }
func (f *FakeProvider) IsConfigured() bool               { return f.Configured }
func (f *FakeProvider) Close() error                     { return nil }

// ResolveModel resolves through the descriptor's alias table.
func (f *FakeProvider) ResolveModel(alias string) string {
	return f.Desc.ResolveAlias(alias)
}

// EncodeRequest renders the canonical request as JSON.
func (f *FakeProvider) EncodeRequest(req *providers.CompletionRequest) ([]byte, error) {
	return json.Marshal(struct {
		Model    string              `json:"model"`
		Messages []providers.Message `json:"messages"`
	}{req.Model, req.Messages})
}

// SendCompletion returns the concatenated deltas, or Err.
func (f *FakeProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.record(req)
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &providers.CompletionResponse{
		Model:        req.Model,
		Content:      strings.Join(f.Deltas, ""),
		FinishReason: providers.FinishStop,
		Provider:     f.Name,
	}, nil
}

// StreamCompletion streams Deltas followed by exactly one terminal chunk.
func (f *FakeProvider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	f.record(req)
	if f.StartErr != nil {
		return nil, f.StartErr
	}

	ch := make(chan *providers.StreamChunk, providers.StreamBufferSize)
	go func() {
		defer close(ch)
		for _, d := range f.Deltas {
			if !providers.SendChunk(ctx, ch, &providers.StreamChunk{Delta: d}) {
				return
			}
		}
		if f.Block {
			<-ctx.Done()
			return
		}
		if f.Err != nil {
			providers.SendChunk(ctx, ch, &providers.StreamChunk{Error: f.Err})
			return
		}
		providers.SendChunk(ctx, ch, &providers.StreamChunk{FinishReason: providers.FinishStop})
	}()
	return ch, nil
}

// GetHealth returns the fake's health record.
func (f *FakeProvider) GetHealth() providers.ProviderHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

// Calls returns the number of completion calls received.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// LastRequest returns the most recent request, or nil.
func (f *FakeProvider) LastRequest() *providers.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeProvider) record(req *providers.CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

// FakeRegistry is a name-keyed set of providers.
type FakeRegistry map[string]providers.Provider

// GetProvider returns the named provider.
func (r FakeRegistry) GetProvider(name string) (providers.Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, &providers.ConfigError{Provider: name, Message: "provider is not registered"}
	}
	return p, nil
}
