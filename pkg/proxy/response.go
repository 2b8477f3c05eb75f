package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/proxy/types"
)

// FormatChatResponse converts a finished turn to the one-shot response body.
func FormatChatResponse(res *orchestrator.Result) *types.ChatResponse {
	return &types.ChatResponse{
		SessionID: res.SessionID,
		Model:     res.Model,
		Response:  res.Response,
	}
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error body with the status it maps to.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.HTTPStatusCode(), errResp)
}

// WriteSSEEvent writes a single event in Server-Sent Events format:
//
//	data: {"chunk":"Hel"}
//
// followed by a blank line, and flushes it to the client.
func WriteSSEEvent(w http.ResponseWriter, event *types.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// SetSSEHeaders sets the appropriate headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
