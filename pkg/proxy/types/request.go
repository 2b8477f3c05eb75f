package types

// ChatRequest is the JSON form of a chat turn. Multipart requests carry the
// same fields as form values plus file parts.
type ChatRequest struct {
	// SessionID identifies the conversation. Required.
	SessionID string `json:"sessionId"`

	// Message is the user's text. It may be empty when files are attached.
	Message string `json:"message"`

	// Model is the requested model id. Optional; the session's last model
	// or the configured baseline is used when empty.
	Model string `json:"model,omitempty"`
}

// ChatResponse is the body of a successful one-shot turn.
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
	Response  string `json:"response"`
}

// StreamEvent is the payload of one SSE data line. Exactly one of Chunk,
// Done or Error is meaningful per event.
type StreamEvent struct {
	Chunk string `json:"chunk,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
