package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message roles used in the canonical conversation model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PartKind tags a ContentPart.
type PartKind string

const (
	// PartText is a plain text fragment.
	PartText PartKind = "text"

	// PartImage is raw image bytes with their mime type.
	PartImage PartKind = "image"
)

// ContentPart is a typed fragment of a message in canonical form.
// Only adapters know how a part is laid out on the wire.
type ContentPart struct {
	// Kind is either PartText or PartImage
	Kind PartKind `json:"kind"`

	// Text is set for text parts
	Text string `json:"text,omitempty"`

	// MimeType is set for image parts (e.g. "image/png")
	MimeType string `json:"mimeType,omitempty"`

	// Data holds the raw image bytes. Encoded as base64 in JSON.
	Data []byte `json:"data,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: PartText, Text: text}
}

// ImagePart builds an image content part.
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{Kind: PartImage, MimeType: mimeType, Data: data}
}

// Message is a single provider-agnostic conversation message.
// Content is either plain text (Content) or an ordered list of parts (Parts);
// when Parts is non-empty it takes precedence.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string

	// Content is the plain text content
	Content string

	// Parts is the multi-part content (text and images)
	Parts []ContentPart
}

// IsMultipart reports whether the message carries structured parts.
func (m Message) IsMultipart() bool {
	return len(m.Parts) > 0
}

// HasImages reports whether any part of the message is an image.
func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// Text returns the concatenated text of the message, ignoring image parts.
func (m Message) Text() string {
	if !m.IsMultipart() {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind != PartText || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type messageJSON struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes content as a string or as an array of parts.
func (m Message) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if m.IsMultipart() {
		content, err = json.Marshal(m.Parts)
	} else {
		content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts either a string or an array of parts as content.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = ""
	m.Parts = nil

	trimmed := strings.TrimSpace(string(raw.Content))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(raw.Content, &m.Parts); err != nil {
			return fmt.Errorf("decode message parts: %w", err)
		}
	default:
		if err := json.Unmarshal(raw.Content, &m.Content); err != nil {
			return fmt.Errorf("decode message content: %w", err)
		}
	}
	return nil
}

// TokenUsage contains token counts reported by the provider, when available.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier. Adapters resolve it through their alias table.
	Model string

	// Messages is the canonical conversation, system message first.
	Messages []Message

	// MaxTokens limits the completion length (0 = provider default)
	MaxTokens int

	// Temperature controls randomness; nil leaves the provider default
	Temperature *float64

	// Stream is set by the adapter when it builds a streaming wire request
	Stream bool

	// RequestID is propagated to logs
	RequestID string
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	// ID is the provider's response identifier, when one is returned
	ID string

	// Model is the canonical model that served the request
	Model string

	// Content is the generated text
	Content string

	// FinishReason indicates why generation stopped
	FinishReason string

	// Usage contains token counts, when reported
	Usage TokenUsage

	// Provider is the adapter name
	Provider string

	// Latency is the provider round-trip time
	Latency time.Duration
}

// StreamChunk is one incremental unit of a streaming completion.
// The last chunk on a stream has FinishReason or Error set.
type StreamChunk struct {
	// Delta is the text added by this chunk
	Delta string

	// FinishReason is set on the terminal chunk of a successful stream
	FinishReason string

	// Usage is set on the terminal chunk when the provider reports it
	Usage *TokenUsage

	// Error is set on the terminal chunk of a failed stream
	Error error
}

// Terminal reports whether the chunk ends the stream.
func (c *StreamChunk) Terminal() bool {
	return c.Error != nil || c.FinishReason != ""
}

// ProviderHealth is passively derived from request outcomes.
type ProviderHealth struct {
	IsHealthy             bool      `json:"healthy"`
	LastCheck             time.Time `json:"last_check"`
	ConsecutiveFailures   int       `json:"consecutive_failures"`
	LastError             error     `json:"-"`
	LastSuccessfulRequest time.Time `json:"last_successful_request"`
	TotalRequests         int64     `json:"total_requests"`
	FailedRequests        int64     `json:"failed_requests"`
}

// ProviderConfig contains the runtime configuration of one adapter.
type ProviderConfig struct {
	// Name is the adapter name (openai, anthropic, gemini, grok, deepseek)
	Name string

	// BaseURL overrides the provider's API endpoint
	BaseURL string

	// APIKey is the provider credential
	APIKey string

	// KeyPrefix overrides the credential prefix checked by IsConfigured
	KeyPrefix string

	// DefaultModel overrides the fallback model for unknown aliases
	DefaultModel string

	// Models adds or overrides alias-to-canonical-id entries
	Models map[string]string

	// MaxTokens is the default completion limit sent when a request sets none
	MaxTokens int

	// Timeout is the per-request HTTP timeout (0 = none)
	Timeout time.Duration

	// MaxIdleConns is the connection pool size
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host connection pool size
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept
	IdleConnTimeout time.Duration
}
