package orchestrator

import (
	"strings"
	"sync"
)

// BufferSink collects a turn in memory. It backs the non-streaming
// endpoint.
type BufferSink struct {
	mu     sync.Mutex
	chunks []string
	full   string
	err    error
	done   bool
}

// Chunk records a delta.
func (b *BufferSink) Chunk(delta string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, delta)
	return nil
}

// Done records the full text.
func (b *BufferSink) Done(full string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.full = full
	b.done = true
	return nil
}

// Error records the failure.
func (b *BufferSink) Error(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	return nil
}

// Chunks returns the deltas received so far.
func (b *BufferSink) Chunks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.chunks...)
}

// Text returns the full text passed to Done, or the concatenated deltas if
// Done was not called.
func (b *BufferSink) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return b.full
	}
	return strings.Join(b.chunks, "")
}

// Err returns the error passed to Error.
func (b *BufferSink) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Finished reports whether Done was called.
func (b *BufferSink) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}
