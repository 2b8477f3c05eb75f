package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/parley/pkg/providers"
)

// streamReader reads named Server-Sent Events from the Messages API.
type streamReader struct {
	provider string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	stop     string
	usage    providers.TokenUsage
	done     bool
}

func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &streamReader{provider: provider, body: body, scanner: scanner}
}

// Next returns the next text delta. It returns io.EOF after message_stop.
func (s *streamReader) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		event, err := s.readEvent()
		if err == io.EOF {
			if s.done {
				return "", io.EOF
			}
			return "", providers.StreamFailure(s.provider, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return "", providers.StreamFailure(s.provider, err)
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				s.usage.PromptTokens = event.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		case "message_delta":
			if event.Delta != nil && event.Delta.StopReason != "" {
				s.stop = normalizeStopReason(event.Delta.StopReason)
			}
			if event.Usage != nil {
				s.usage.CompletionTokens = event.Usage.OutputTokens
			}
		case "message_stop":
			s.done = true
			if s.stop == "" {
				s.stop = providers.FinishStop
			}
			s.usage.TotalTokens = s.usage.PromptTokens + s.usage.CompletionTokens
			return "", io.EOF
		case "error":
			msg := "stream error"
			if event.Error != nil && event.Error.Message != "" {
				msg = event.Error.Message
			}
			return "", &providers.ProviderError{
				Provider:   s.provider,
				StatusCode: http.StatusBadGateway,
				Message:    msg,
			}
		}
		// ping, content_block_start and content_block_stop carry no text.
	}
}

// readEvent reads one complete SSE event.
func (s *streamReader) readEvent() (*AnthropicStreamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	var event AnthropicStreamEvent
	if data := strings.Join(dataLines, "\n"); data != "" {
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, fmt.Errorf("parse stream event %q: %w", eventType, err)
		}
	}
	if event.Type == "" {
		event.Type = eventType
	}
	return &event, nil
}

// Close closes the response body.
func (s *streamReader) Close() error {
	return s.body.Close()
}
