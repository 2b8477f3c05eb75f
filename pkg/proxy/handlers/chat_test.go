package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/parley/pkg/access"
	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/proxy/types"
	"mercator-hq/parley/pkg/security/auth"
)

// fakeChats plays a scripted turn against the sink it is given.
type fakeChats struct {
	chunks []string
	err    error
	// errAfter delivers err after the chunks instead of before them.
	errAfter bool

	deleteErr error

	lastReq    *orchestrator.Request
	lastToken  string
	lastDelete string
}

func (f *fakeChats) Run(_ context.Context, req *orchestrator.Request, sink orchestrator.Sink) (*orchestrator.Result, error) {
	f.lastReq = req
	res := &orchestrator.Result{SessionID: req.SessionID, Model: "gpt-4o-mini", Provider: "openai"}

	if f.err != nil && !f.errAfter {
		_ = sink.Error(f.err)
		return res, f.err
	}
	for _, c := range f.chunks {
		_ = sink.Chunk(c)
		res.Response += c
	}
	if f.err != nil {
		_ = sink.Error(f.err)
		return res, f.err
	}
	_ = sink.Done(res.Response)
	return res, nil
}

func (f *fakeChats) Delete(_ context.Context, token, sessionID string) error {
	f.lastToken = token
	f.lastDelete = sessionID
	return f.deleteErr
}

func newMux(t *testing.T, chats ChatService) *http.ServeMux {
	t.Helper()
	store, err := attachments.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := NewChatHandler(chats, proxy.NewRequestParser(store, proxy.RequestLimits{}), nil)
	requireBearer := auth.RequireBearer(AuthError)

	mux := http.NewServeMux()
	mux.Handle("POST /chat", requireBearer(http.HandlerFunc(h.HandleChat)))
	mux.Handle("POST /chat/stream", requireBearer(http.HandlerFunc(h.HandleStream)))
	mux.Handle("DELETE /chat/{sessionId}", requireBearer(http.HandlerFunc(h.HandleDelete)))
	return mux
}

func jsonRequest(method, path, body string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer tok-alice")
	return r
}

func TestHandleChat(t *testing.T) {
	chats := &fakeChats{chunks: []string{"Hel", "lo", "!"}}
	mux := newMux(t, chats)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat", `{"sessionId":"s1","message":"hello"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := types.ChatResponse{SessionID: "s1", Model: "gpt-4o-mini", Response: "Hello!"}
	if body != want {
		t.Errorf("body = %+v, want %+v", body, want)
	}
	if chats.lastReq.Token != "tok-alice" {
		t.Errorf("token = %q, want tok-alice", chats.lastReq.Token)
	}
}

func TestHandleChat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &orchestrator.ValidationError{Field: "sessionId", Message: "is required"}, http.StatusBadRequest, "invalid_request"},
		{"auth", &auth.AuthError{Reason: "invalid token"}, http.StatusUnauthorized, "auth_failed"},
		{"quota", access.Denied(access.ReasonQuotaNewChat), http.StatusForbidden, "quota_new_chat"},
		{"provider", &providers.ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}, http.StatusBadGateway, "provider_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(t, &fakeChats{err: tt.err})

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat", `{"sessionId":"s1","message":"hi"}`))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleChat_MissingBearer(t *testing.T) {
	chats := &fakeChats{}
	mux := newMux(t, chats)

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"sessionId":"s1","message":"hi"}`))
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Authorization %q: status = %d, want 401", header, w.Code)
		}
	}
	if chats.lastReq != nil {
		t.Error("handler should not run without a bearer token")
	}
}

func TestHandleStream(t *testing.T) {
	mux := newMux(t, &fakeChats{chunks: []string{"Hel", "lo"}})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat/stream", `{"sessionId":"s1","message":"hello"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	want := "data: {\"chunk\":\"Hel\"}\n\ndata: {\"chunk\":\"lo\"}\n\ndata: {\"done\":true}\n\n"
	if w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestHandleStream_ErrorBeforeFirstChunk(t *testing.T) {
	mux := newMux(t, &fakeChats{err: access.Denied(access.ReasonPremiumRequired)})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat/stream", `{"sessionId":"s1","message":"hi","model":"claude-3-opus"}`))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"premium_required"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHandleStream_ErrorMidStream(t *testing.T) {
	mux := newMux(t, &fakeChats{
		chunks:   []string{"par"},
		err:      &providers.ProviderError{Provider: "openai", StatusCode: 502, Message: "stream interrupted"},
		errAfter: true,
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat/stream", `{"sessionId":"s1","message":"hi"}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "data: {\"chunk\":\"par\"}\n\n") {
		t.Errorf("body = %q", body)
	}
	if !strings.HasSuffix(body, "\"code\":\"provider_error\"}\n\n") {
		t.Errorf("body should end with the error event: %q", body)
	}
	if strings.Contains(body, `"done":true`) {
		t.Error("failed stream must not carry a done event")
	}
}

func TestHandleStream_ParseError(t *testing.T) {
	chats := &fakeChats{}
	mux := newMux(t, chats)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, jsonRequest(http.MethodPost, "/chat/stream", `{not json`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"invalid_request"`) {
		t.Errorf("body = %q", w.Body.String())
	}
	if chats.lastReq != nil {
		t.Error("orchestrator should not run")
	}
}

func TestHandleDelete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"not found", orchestrator.ErrSessionNotFound, http.StatusNotFound},
		{"not owner", access.Denied(access.ReasonSessionForbidden), http.StatusForbidden},
		{"bad token", &auth.AuthError{Reason: "invalid token"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chats := &fakeChats{deleteErr: tt.err}
			mux := newMux(t, chats)

			r := httptest.NewRequest(http.MethodDelete, "/chat/s-42", nil)
			r.Header.Set("Authorization", "Bearer tok-alice")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if chats.lastDelete != "s-42" || chats.lastToken != "tok-alice" {
				t.Errorf("Delete(%q, %q)", chats.lastToken, chats.lastDelete)
			}
			if tt.err == nil && w.Body.Len() != 0 {
				t.Errorf("204 should have no body, got %q", w.Body.String())
			}
		})
	}
}
