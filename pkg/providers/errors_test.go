package providers

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "with status",
			err:  &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"},
			want: `provider "openai" error (status 500): boom`,
		},
		{
			name: "transport failure",
			err:  &ProviderError{Provider: "gemini", Message: "transport failure"},
			want: `provider "gemini" error: transport failure`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := fmt.Errorf("dispatch: %w", &ProviderError{Provider: "grok", Cause: cause})

	if !errors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != "grok" {
		t.Errorf("expected *ProviderError for grok, got %v", err)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Provider: "anthropic", Field: "api_key", Message: "missing or malformed"}
	want := `provider "anthropic" not configured: api_key: missing or malformed`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai shape", `{"error":{"message":"model not found","type":"invalid_request_error"}}`, "model not found"},
		{"top-level message", `{"message":"nope"}`, "nope"},
		{"raw text", "upstream timeout\n", "upstream timeout"},
		{"empty", "", "empty error response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}

	long := strings.Repeat("x", 2*maxErrorMessage)
	if got := errorMessage([]byte(long)); len(got) != maxErrorMessage+3 {
		t.Errorf("expected truncation, got %d bytes", len(got))
	}
}
