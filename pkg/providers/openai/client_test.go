package openai

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	testhelpers "mercator-hq/parley/internal/providers"
	"mercator-hq/parley/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer, key string) *Provider {
	t.Helper()
	p, err := NewProvider(testhelpers.TestConfigWithURL("openai", key, mock.URL()+"/v1"))
	testhelpers.AssertNoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestOpenAIProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("Hello, world!", "gpt-3.5-turbo"),
	})

	p := newTestProvider(t, mock, testhelpers.TestOpenAIKey)
	req := testhelpers.TestCompletionRequest("gpt-3.5-turbo", testhelpers.TestMessage(providers.RoleUser, "Hello"))

	resp, err := p.SendCompletion(context.Background(), req)
	testhelpers.AssertNoError(t, err)

	if resp.Content != "Hello, world!" {
		t.Errorf("expected content %q, got %q", "Hello, world!", resp.Content)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected total tokens 30, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != providers.FinishStop {
		t.Errorf("expected finish reason %q, got %q", providers.FinishStop, resp.FinishReason)
	}
	if resp.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", resp.Provider)
	}

	if got := mock.LastRequestHeader("Authorization"); got != "Bearer "+testhelpers.TestOpenAIKey {
		t.Errorf("unexpected Authorization header %q", got)
	}

	body, err := mock.LastRequestJSON()
	testhelpers.AssertNoError(t, err)
	if body["model"] != "gpt-3.5-turbo" {
		t.Errorf("expected resolved model in request, got %v", body["model"])
	}
	msgs := body["messages"].([]interface{})
	if first := msgs[0].(map[string]interface{}); first["role"] != "system" {
		t.Errorf("expected in-line system message, got %v", first["role"])
	}
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		resp   testhelpers.MockResponse
		status int
	}{
		{"auth", testhelpers.MockAuthError(), http.StatusUnauthorized},
		{"rate limit", testhelpers.MockRateLimitError(30), http.StatusTooManyRequests},
		{"server", testhelpers.MockServerError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", tt.resp)

			p := newTestProvider(t, mock, testhelpers.TestOpenAIKey)
			req := testhelpers.TestCompletionRequest("gpt-4o", testhelpers.TestMessage(providers.RoleUser, "hi"))

			_, err := p.SendCompletion(context.Background(), req)
			perr := testhelpers.AssertProviderError(t, err, tt.status)
			if strings.Contains(perr.Error(), testhelpers.TestOpenAIKey) {
				t.Error("error message leaks the API key")
			}
			if mock.GetRequestCount() != 1 {
				t.Errorf("expected exactly one attempt, got %d", mock.GetRequestCount())
			}
		})
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       map[string]interface{}{"id": "x", "choices": []interface{}{}},
	})

	p := newTestProvider(t, mock, testhelpers.TestOpenAIKey)
	_, err := p.SendCompletion(context.Background(),
		testhelpers.TestCompletionRequest("gpt-4o", testhelpers.TestMessage(providers.RoleUser, "hi")))
	testhelpers.AssertProviderError(t, err, http.StatusBadGateway)
}

// TestOpenAIProvider_Unconfigured verifies that no request leaves the process without a plausible key.
func TestOpenAIProvider_Unconfigured(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	for _, key := range []string{"", "not-a-key", "sk-"} {
		p := newTestProvider(t, mock, key)
		if p.IsConfigured() {
			t.Errorf("IsConfigured() = true for key %q", key)
		}

		req := testhelpers.TestCompletionRequest("gpt-4o", testhelpers.TestMessage(providers.RoleUser, "hi"))
		_, err := p.SendCompletion(context.Background(), req)
		testhelpers.AssertConfigError(t, err)

		_, err = p.StreamCompletion(context.Background(), req)
		testhelpers.AssertConfigError(t, err)
	}

	if mock.GetRequestCount() != 0 {
		t.Errorf("expected no network calls, got %d", mock.GetRequestCount())
	}
}

func TestOpenAIProvider_ResolveModel(t *testing.T) {
	p, err := NewProvider(testhelpers.TestConfig("openai", testhelpers.TestOpenAIKey))
	testhelpers.AssertNoError(t, err)

	tests := map[string]string{
		"gpt-3.5-turbo": "gpt-3.5-turbo",
		"GPT-4o":        "gpt-4o",
		"gpt-3.5":       "gpt-3.5-turbo",
		"something-new": "gpt-4o-mini",
		"":              "gpt-4o-mini",
	}
	for alias, want := range tests {
		if got := p.ResolveModel(alias); got != want {
			t.Errorf("ResolveModel(%q) = %q, want %q", alias, got, want)
		}
	}

	if p.ResolveModel("unknown-x") != p.ResolveModel("unknown-x") {
		t.Error("ResolveModel is not deterministic")
	}
}

func TestOpenAIProvider_EncodeImages(t *testing.T) {
	p, err := NewProvider(testhelpers.TestConfig("openai", testhelpers.TestOpenAIKey))
	testhelpers.AssertNoError(t, err)

	png := []byte{0x89, 'P', 'N', 'G'}
	req := testhelpers.TestCompletionRequest("gpt-4o", providers.Message{
		Role: providers.RoleUser,
		Parts: []providers.ContentPart{
			providers.TextPart("describe"),
			providers.ImagePart("image/png", png),
		},
	})

	body, err := p.EncodeRequest(req)
	testhelpers.AssertNoError(t, err)

	want := `{"type":"image_url","image_url":{"url":"data:image/png;base64,` + testhelpers.Base64(png) + `"}}`
	if !strings.Contains(string(body), want) {
		t.Errorf("encoded body missing image part:\n%s", body)
	}
	if !strings.Contains(string(body), `{"type":"text","text":"describe"}`) {
		t.Errorf("encoded body missing text part:\n%s", body)
	}
}

func TestOpenAIProvider_InvalidBaseURL(t *testing.T) {
	_, err := NewProvider(testhelpers.TestConfigWithURL("openai", testhelpers.TestOpenAIKey, "::not a url"))
	testhelpers.AssertConfigError(t, err)
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("late", "gpt-4o"),
		Delay:      500 * time.Millisecond,
	})

	cfg := testhelpers.TestConfigWithURL("openai", testhelpers.TestOpenAIKey, mock.URL()+"/v1")
	cfg.Timeout = 50 * time.Millisecond
	p, err := NewProvider(cfg)
	testhelpers.AssertNoError(t, err)
	defer p.Close()

	_, err = p.SendCompletion(context.Background(),
		testhelpers.TestCompletionRequest("gpt-4o", testhelpers.TestMessage(providers.RoleUser, "hi")))
	testhelpers.AssertProviderError(t, err, 0)
}
