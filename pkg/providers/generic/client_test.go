package generic

import (
	"context"
	"testing"

	testhelpers "mercator-hq/parley/internal/providers"
	"mercator-hq/parley/pkg/providers"
)

var testProfile = Profile{
	Descriptor: providers.Descriptor{
		Name:         "local",
		KeyPrefix:    "lk-",
		DefaultModel: "llama3",
		Aliases:      map[string]string{"llama": "llama3"},
	},
}

func TestGenericProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("Hello from a local model", "llama3"),
	})

	p, err := NewProvider(testhelpers.TestConfigWithURL("local", "lk-abc", mock.URL()+"/v1"), testProfile)
	testhelpers.AssertNoError(t, err)
	defer p.Close()

	resp, err := p.SendCompletion(context.Background(),
		testhelpers.TestCompletionRequest("llama", testhelpers.TestMessage(providers.RoleUser, "hi")))
	testhelpers.AssertNoError(t, err)

	if resp.Content != "Hello from a local model" {
		t.Errorf("content = %q", resp.Content)
	}
	if got := mock.LastRequestHeader("Authorization"); got != "Bearer lk-abc" {
		t.Errorf("Authorization = %q", got)
	}
	body, _ := mock.LastRequestJSON()
	if body["model"] != "llama3" {
		t.Errorf("expected alias resolution, got %v", body["model"])
	}
}

func TestGenericProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewProvider(providers.ProviderConfig{Name: "local", APIKey: "lk-abc"}, testProfile)
	testhelpers.AssertConfigError(t, err)
}

func TestGenericProvider_Descriptor(t *testing.T) {
	p, err := NewProvider(testhelpers.TestConfig("local", "lk-abc"), testProfile)
	testhelpers.AssertNoError(t, err)

	d := p.Descriptor()
	if d.Name != "local" || !d.NativeStreaming {
		t.Errorf("unexpected descriptor %+v", d)
	}
	if d.MaxImageBytes != 20*providers.MiB {
		t.Errorf("expected default image ceiling, got %d", d.MaxImageBytes)
	}
	if !p.IsConfigured() {
		t.Error("expected configured with lk- key")
	}
}

func TestGenericProvider_KeylessEndpoint(t *testing.T) {
	p, err := NewProvider(testhelpers.TestConfig("ollama", ""), Profile{
		Descriptor:     providers.Descriptor{Name: "ollama", DefaultModel: "llama3"},
		DefaultBaseURL: "http://localhost:11434/v1",
	})
	testhelpers.AssertNoError(t, err)

	if !p.IsConfigured() {
		t.Error("expected an endpoint without a key prefix to be usable without a key")
	}
	if got := p.ResolveModel("anything"); got != "llama3" {
		t.Errorf("ResolveModel() = %q", got)
	}
}
