package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/parley/pkg/providers"
)

// Plausible test credentials for each adapter.
const (
	TestOpenAIKey    = "sk-test-openai"
	TestAnthropicKey = "sk-ant-test"
	TestGeminiKey    = "AIzaTestKey"
	TestGrokKey      = "xai-test"
	TestDeepseekKey  = "sk-test-deepseek"
)

// TestConfig returns a test provider configuration.
func TestConfig(name, apiKey string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		BaseURL:             "http://localhost:8080",
		APIKey:              apiKey,
		Timeout:             5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, apiKey, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, apiKey)
	config.BaseURL = baseURL
	return config
}

// TestMessage creates a test message.
func TestMessage(role, content string) providers.Message {
	return providers.Message{
		Role:    role,
		Content: content,
	}
}

// TestCompletionRequest creates a test completion request with a system
// message followed by the given messages.
func TestCompletionRequest(model string, messages ...providers.Message) *providers.CompletionRequest {
	all := append([]providers.Message{TestMessage(providers.RoleSystem, "You are a helpful assistant.")}, messages...)
	return &providers.CompletionRequest{
		Model:     model,
		Messages:  all,
		MaxTokens: 100,
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertProviderError fails the test unless err is a *providers.ProviderError
// with the given status.
func AssertProviderError(t *testing.T, err error, status int) *providers.ProviderError {
	t.Helper()
	var perr *providers.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *providers.ProviderError, got %T: %v", err, err)
	}
	if perr.StatusCode != status {
		t.Fatalf("expected status %d, got %d (%v)", status, perr.StatusCode, perr)
	}
	return perr
}

// AssertConfigError fails the test unless err is a *providers.ConfigError.
func AssertConfigError(t *testing.T, err error) {
	t.Helper()
	var cerr *providers.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *providers.ConfigError, got %T: %v", err, err)
	}
}

// CollectStreamChunks collects all chunks from a stream channel. It fails the
// test if the channel does not close within timeout.
func CollectStreamChunks(t *testing.T, chunks <-chan *providers.StreamChunk, timeout time.Duration) []*providers.StreamChunk {
	t.Helper()

	var collected []*providers.StreamChunk
	deadline := time.After(timeout)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return collected
			}
			collected = append(collected, chunk)
		case <-deadline:
			t.Fatalf("stream did not close within %s", timeout)
		}
	}
}

// ConcatenateChunks concatenates the delta content from all chunks.
func ConcatenateChunks(chunks []*providers.StreamChunk) string {
	var result string
	for _, chunk := range chunks {
		result += chunk.Delta
	}
	return result
}

// AssertSingleTerminal fails the test unless exactly the last chunk is terminal.
func AssertSingleTerminal(t *testing.T, chunks []*providers.StreamChunk) *providers.StreamChunk {
	t.Helper()
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks[:len(chunks)-1] {
		if c.Terminal() {
			t.Fatalf("chunk %d is terminal before the end of the stream", i)
		}
	}
	last := chunks[len(chunks)-1]
	if !last.Terminal() {
		t.Fatalf("last chunk is not terminal: %+v", last)
	}
	return last
}

// WithTimeout runs a function with a timeout context.
func WithTimeout(t *testing.T, timeout time.Duration, fn func(ctx context.Context)) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		fn(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("test timeout after %s", timeout)
	}
}
