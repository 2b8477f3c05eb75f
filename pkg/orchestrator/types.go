package orchestrator

import (
	"errors"
	"fmt"

	"mercator-hq/parley/pkg/attachments"
)

// State is a step of the turn lifecycle.
type State int

// Turn states in order. Errored is reachable from every state.
const (
	StateReceived State = iota
	StateAuthenticated
	StateAccessChecked
	StateAttachmentsProcessed
	StateHistoryAssembled
	StateProviderDispatched
	StateStreaming
	StatePersisted
	StateDone
	StateErrored
)

var stateNames = [...]string{
	"received",
	"authenticated",
	"access_checked",
	"attachments_processed",
	"history_assembled",
	"provider_dispatched",
	"streaming",
	"persisted",
	"done",
	"errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Request is one chat turn as received from a client.
type Request struct {
	SessionID string
	Message   string

	// Model is optional; the session's last model or the baseline is used
	// when empty.
	Model string

	// Token is the raw bearer token.
	Token string

	// Files are uploads already written to the blob store.
	Files []attachments.UploadedFile

	// RequestID correlates logs and provider calls.
	RequestID string
}

// Sink receives the output of a turn. Exactly one of Done or Error is
// called, after zero or more Chunk calls.
type Sink interface {
	Chunk(delta string) error
	Done(full string) error
	Error(err error) error
}

// Result describes a finished (or failed) turn.
type Result struct {
	SessionID string `json:"sessionId"`

	// Model is the canonical model id the provider was called with.
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`

	// Response is the full assistant text.
	Response string `json:"response"`

	// MessageCount is the durable record's count after the turn (0 when
	// persistence failed).
	MessageCount int `json:"messageCount,omitempty"`

	// Dropped lists attachments excluded from the turn.
	Dropped []*attachments.AttachmentError `json:"-"`

	// State is the last state reached.
	State State `json:"-"`
}

// ErrSessionNotFound is returned by Delete for an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// ValidationError rejects a malformed request before authentication.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// PersistenceError records a durable write that failed after the turn was
// delivered. It is logged, never returned to the client.
type PersistenceError struct {
	SessionID string
	Err       error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist session %q: %v", e.SessionID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrClientGone wraps a sink write failure during streaming.
var ErrClientGone = errors.New("client stopped receiving")
