package proxy

import (
	"net/http"
	"sync"

	"mercator-hq/parley/pkg/proxy/types"
)

// SSESink streams a turn to an HTTP client as Server-Sent Events.
//
// Headers are deferred until the first event so that a turn failing before
// any output can still answer with the mapped HTTP status. Once the first
// chunk is written the status is 200 and later failures travel as an error
// event.
type SSESink struct {
	w http.ResponseWriter

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSSESink creates a sink writing to w.
func NewSSESink(w http.ResponseWriter) *SSESink {
	return &SSESink{w: w}
}

// Chunk writes one delta event.
func (s *SSESink) Chunk(delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start(http.StatusOK)
	return WriteSSEEvent(s.w, &types.StreamEvent{Chunk: delta})
}

// Done writes the terminal done event.
func (s *SSESink) Done(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.start(http.StatusOK)
	return WriteSSEEvent(s.w, &types.StreamEvent{Done: true})
}

// Error writes the terminal error event. Before the first chunk it also sets
// the HTTP status the error maps to.
func (s *SSESink) Error(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	resp := HandleError(err)
	s.start(resp.HTTPStatusCode())
	return WriteSSEEvent(s.w, &types.StreamEvent{Error: resp.Error, Code: resp.Code})
}

func (s *SSESink) start(status int) {
	if s.started {
		return
	}
	s.started = true
	SetSSEHeaders(s.w)
	s.w.WriteHeader(status)
}
