package gemini

import (
	"encoding/base64"
	"fmt"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// Gemini generateContent request/response types

// GenerateContentRequest is the generateContent request body.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one conversation turn. Role is "user" or "model".
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text or inline-data fragment.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64 encoded bytes.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig holds sampling options.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// GenerateContentResponse is the generateContent response body.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// PromptFeedback reports why a prompt was blocked.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports token counts.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// transformRequest converts the canonical request. System text moves to
// systemInstruction, the assistant role becomes "model" and consecutive turns
// with the same role are merged.
func transformRequest(req *providers.CompletionRequest, maxTokens int) *GenerateContentRequest {
	out := &GenerateContentRequest{Contents: make([]Content, 0, len(req.Messages))}

	var system []Part
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			if text := msg.Text(); text != "" {
				system = append(system, Part{Text: text})
			}
			continue
		}

		parts := toParts(msg)
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if msg.Role == providers.RoleAssistant {
			role = "model"
		}
		if n := len(out.Contents); n > 0 && out.Contents[n-1].Role == role {
			out.Contents[n-1].Parts = append(out.Contents[n-1].Parts, parts...)
			continue
		}
		out.Contents = append(out.Contents, Content{Role: role, Parts: parts})
	}

	if len(system) > 0 {
		out.SystemInstruction = &Content{Parts: system}
	}
	if req.Temperature != nil || maxTokens > 0 {
		out.GenerationConfig = &GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: maxTokens,
		}
	}
	return out
}

func toParts(msg providers.Message) []Part {
	if !msg.IsMultipart() {
		if msg.Content == "" {
			return nil
		}
		return []Part{{Text: msg.Content}}
	}

	parts := make([]Part, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Kind {
		case providers.PartText:
			if p.Text != "" {
				parts = append(parts, Part{Text: p.Text})
			}
		case providers.PartImage:
			parts = append(parts, Part{InlineData: &InlineData{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
		}
	}
	return parts
}

// transformResponse extracts the first candidate's text.
func transformResponse(resp *GenerateContentResponse, model string) (*providers.CompletionResponse, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty candidate (finish reason %q)", cand.FinishReason)
	}

	out := &providers.CompletionResponse{
		Model:        model,
		Content:      text.String(),
		FinishReason: normalizeFinishReason(cand.FinishReason),
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = providers.TokenUsage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return out, nil
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "", "STOP":
		return providers.FinishStop
	case "MAX_TOKENS":
		return "length"
	default:
		return strings.ToLower(reason)
	}
}
