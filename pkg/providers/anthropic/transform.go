package anthropic

import (
	"encoding/base64"
	"fmt"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// Anthropic API request/response types

// AnthropicRequest represents an Anthropic messages request.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents a content block in Anthropic format.
type ContentBlock struct {
	Type   string       `json:"type"` // "text" or "image"
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource is an inline base64 image.
type ImageSource struct {
	Type      string `json:"type"` // always "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// AnthropicResponse represents an Anthropic messages response.
type AnthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      AnthropicUsage `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Anthropic streaming response types

// AnthropicStreamEvent represents an event in Anthropic's SSE stream.
// Delta is shared by content_block_delta (Type/Text) and message_delta
// (StopReason).
type AnthropicStreamEvent struct {
	Type    string             `json:"type"`
	Message *AnthropicResponse `json:"message,omitempty"`
	Index   int                `json:"index,omitempty"`
	Delta   *StreamDelta       `json:"delta,omitempty"`
	Usage   *AnthropicUsage    `json:"usage,omitempty"`
	Error   *AnthropicError    `json:"error,omitempty"`
}

// StreamDelta represents incremental content or message-level changes.
type StreamDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// AnthropicError is the payload of an "error" stream event.
type AnthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// defaultMaxTokens is sent when neither the request nor config sets a limit;
// the Messages API requires the field.
const defaultMaxTokens = 4096

// Transformation functions

// transformRequest converts the canonical request to Anthropic format. The
// system message is hoisted into the System field, consecutive messages with
// the same role are merged, and images become base64 source blocks.
func transformRequest(req *providers.CompletionRequest, model string) *AnthropicRequest {
	out := &AnthropicRequest{
		Model:       model,
		Messages:    make([]AnthropicMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, text)
			}
			continue
		}

		blocks := contentBlocks(msg)
		if len(blocks) == 0 {
			continue
		}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == msg.Role {
			out.Messages[n-1].Content = append(out.Messages[n-1].Content, blocks...)
			continue
		}
		out.Messages = append(out.Messages, AnthropicMessage{Role: msg.Role, Content: blocks})
	}
	out.System = strings.Join(system, "\n\n")

	return out
}

func contentBlocks(msg providers.Message) []ContentBlock {
	if !msg.IsMultipart() {
		if msg.Content == "" {
			return nil
		}
		return []ContentBlock{{Type: "text", Text: msg.Content}}
	}

	blocks := make([]ContentBlock, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Kind {
		case providers.PartText:
			if p.Text != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: p.Text})
			}
		case providers.PartImage:
			blocks = append(blocks, ContentBlock{
				Type: "image",
				Source: &ImageSource{
					Type:      "base64",
					MediaType: p.MimeType,
					Data:      base64.StdEncoding.EncodeToString(p.Data),
				},
			})
		}
	}
	return blocks
}

// transformResponse transforms an Anthropic response to provider-agnostic format.
func transformResponse(resp *AnthropicResponse) (*providers.CompletionResponse, error) {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && resp.StopReason == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      text.String(),
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// normalizeStopReason maps Anthropic stop reasons onto the canonical values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "", "end_turn", "stop_sequence":
		return providers.FinishStop
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}
