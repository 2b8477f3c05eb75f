package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProviderError is returned for any failed provider call: a non-2xx status,
// a transport failure (StatusCode 0) or a malformed response body.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 when no response was received)
	StatusCode int

	// Message is the error message extracted from the provider response
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates that the provider's configuration is unusable.
// Message never contains the credential value.
type ConfigError struct {
	// Provider is the name of the provider with the configuration error
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("provider %q not configured: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider %q not configured: %s: %s", e.Provider, e.Field, e.Message)
}

// ValidationError indicates that a request failed validation before it was sent.
type ValidationError struct {
	// Field is the field that failed validation
	Field string

	// Message describes the validation error
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

const maxErrorMessage = 512

// errorMessage extracts a readable message from a provider error body.
// All supported providers use {"error":{"message":...}}; Gemini adds a status.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error.Message != "":
			msg = envelope.Error.Message
		case envelope.Message != "":
			msg = envelope.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = "empty error response"
	}
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	return msg
}
