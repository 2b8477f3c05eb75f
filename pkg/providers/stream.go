package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// FinishStop is the finish reason adapters report for a normal end of stream.
const FinishStop = "stop"

// StreamBufferSize is the channel capacity adapters use for stream chunks.
const StreamBufferSize = 100

// Stream runs a streaming completion on p, calling onChunk for every delta in
// the order the provider emits them, and returns the concatenation of all
// delivered deltas.
//
// If onChunk returns an error the provider call is cancelled (releasing its
// connection) and that error is returned together with the text delivered so
// far. The same happens when ctx is cancelled.
func Stream(ctx context.Context, p Provider, req *CompletionRequest, onChunk func(delta string) error) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := p.StreamCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	abort := func(err error) (string, error) {
		cancel()
		for range chunks {
		}
		return full.String(), err
	}

	for chunk := range chunks {
		if chunk.Error != nil {
			return abort(chunk.Error)
		}
		if chunk.Delta != "" {
			full.WriteString(chunk.Delta)
			if err := onChunk(chunk.Delta); err != nil {
				return abort(err)
			}
		}
		if chunk.FinishReason != "" {
			return abort(nil)
		}
	}

	if err := ctx.Err(); err != nil {
		return full.String(), err
	}
	return full.String(), &ProviderError{
		Provider:   p.GetName(),
		StatusCode: http.StatusBadGateway,
		Message:    "stream ended without completion",
	}
}

// SimulateStream adapts a blocking call to the streaming contract: the whole
// text is delivered as one chunk followed by the terminal chunk.
func SimulateStream(ctx context.Context, call func(ctx context.Context) (*CompletionResponse, error)) <-chan *StreamChunk {
	ch := make(chan *StreamChunk, 2)
	go func() {
		defer close(ch)

		resp, err := call(ctx)
		if err != nil {
			SendChunk(ctx, ch, &StreamChunk{Error: err})
			return
		}
		if resp.Content != "" && !SendChunk(ctx, ch, &StreamChunk{Delta: resp.Content}) {
			return
		}
		reason := resp.FinishReason
		if reason == "" {
			reason = FinishStop
		}
		usage := resp.Usage
		SendChunk(ctx, ch, &StreamChunk{FinishReason: reason, Usage: &usage})
	}()
	return ch
}

// SendChunk delivers chunk unless ctx is done first. It reports whether the
// chunk was delivered.
func SendChunk(ctx context.Context, ch chan<- *StreamChunk, chunk *StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// StreamFailure wraps a mid-stream read or decode failure.
func StreamFailure(provider string, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return &ProviderError{
		Provider:   provider,
		StatusCode: http.StatusBadGateway,
		Message:    "stream interrupted",
		Cause:      err,
	}
}
