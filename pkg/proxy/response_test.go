package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/proxy/types"
)

func TestFormatChatResponse(t *testing.T) {
	got := FormatChatResponse(&orchestrator.Result{
		SessionID: "s1",
		Model:     "claude-3-opus-20240229",
		Provider:  "anthropic",
		Response:  "Bonjour",
	})
	want := types.ChatResponse{SessionID: "s1", Model: "claude-3-opus-20240229", Response: "Bonjour"}
	if *got != want {
		t.Errorf("FormatChatResponse() = %+v, want %+v", *got, want)
	}
}

func TestWriteJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteJSONResponse(w, http.StatusOK, types.ChatResponse{SessionID: "s1", Model: "m", Response: "hi"}); err != nil {
		t.Fatal(err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["sessionId"] != "s1" || body["model"] != "m" || body["response"] != "hi" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteErrorResponse(w, types.NewErrorResponse(http.StatusForbidden, "quota_new_chat", "limit reached")); err != nil {
		t.Fatal(err)
	}

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"limit reached","code":"quota_new_chat"}`+"\n" {
		t.Errorf("body = %q", got)
	}
}

func TestWriteSSEEvent(t *testing.T) {
	tests := []struct {
		name  string
		event types.StreamEvent
		want  string
	}{
		{"chunk", types.StreamEvent{Chunk: "Hel"}, "data: {\"chunk\":\"Hel\"}\n\n"},
		{"done", types.StreamEvent{Done: true}, "data: {\"done\":true}\n\n"},
		{"error", types.StreamEvent{Error: "boom", Code: "provider_error"}, "data: {\"error\":\"boom\",\"code\":\"provider_error\"}\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := WriteSSEEvent(w, &tt.event); err != nil {
				t.Fatal(err)
			}
			if w.Body.String() != tt.want {
				t.Errorf("got %q, want %q", w.Body.String(), tt.want)
			}
			if !w.Flushed {
				t.Error("event should be flushed")
			}
		})
	}
}

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SetSSEHeaders(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
}
