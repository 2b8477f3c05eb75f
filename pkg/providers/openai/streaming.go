package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// streamReader reads Server-Sent Events from an OpenAI-compatible stream.
type streamReader struct {
	provider string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	finish   string
	usage    *providers.TokenUsage
}

func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &streamReader{provider: provider, body: body, scanner: scanner}
}

// Next returns the next text delta. It returns io.EOF once the stream has
// ended with [DONE] or a finish reason.
func (s *streamReader) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", providers.StreamFailure(s.provider, err)
			}
			if s.finish != "" {
				return "", io.EOF
			}
			return "", providers.StreamFailure(s.provider, io.ErrUnexpectedEOF)
		}

		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			// Blank separators, comments and event names carry nothing for us.
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			if s.finish == "" {
				s.finish = providers.FinishStop
			}
			return "", io.EOF
		}

		var chunk OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", providers.StreamFailure(s.provider, fmt.Errorf("parse stream chunk: %w", err))
		}

		if chunk.Usage != nil {
			s.usage = &providers.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			s.finish = normalizeFinishReason(choice.FinishReason)
		}
		if choice.Delta.Content != "" {
			return choice.Delta.Content, nil
		}
	}
}

// Close closes the response body.
func (s *streamReader) Close() error {
	return s.body.Close()
}
