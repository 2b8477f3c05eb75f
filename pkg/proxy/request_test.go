package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/proxy/types"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/telemetry/logging"
)

type filePart struct {
	field, name, mime string
	data              []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		if f.mime != "" {
			h.Set("Content-Type", f.mime)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// parse runs the parser behind the bearer middleware so the token lands in
// the request context the way it does in the server.
func parse(t *testing.T, p *RequestParser, r *http.Request) (*orchestrator.Request, error) {
	t.Helper()
	var (
		req *orchestrator.Request
		err error
	)
	r.Header.Set("Authorization", "Bearer tok-alice")
	h := auth.RequireBearer(func(w http.ResponseWriter, r *http.Request, e error) {
		t.Fatalf("unexpected auth error: %v", e)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err = p.ParseChatRequest(w, r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	return req, err
}

func newStore(t *testing.T) *attachments.LocalStore {
	t.Helper()
	store, err := attachments.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestParseChatRequest_JSON(t *testing.T) {
	p := NewRequestParser(newStore(t), RequestLimits{})

	r := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"sessionId":" s1 ","message":"hello","model":"claude-3-opus"}`))
	r.Header.Set("Content-Type", "application/json")
	r = r.WithContext(logging.WithRequestID(r.Context(), "req-1"))

	req, err := parse(t, p, r)
	if err != nil {
		t.Fatalf("ParseChatRequest() error = %v", err)
	}
	if req.SessionID != "s1" || req.Message != "hello" || req.Model != "claude-3-opus" {
		t.Errorf("got %+v", req)
	}
	if req.Token != "tok-alice" {
		t.Errorf("Token = %q, want tok-alice", req.Token)
	}
	if req.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", req.RequestID)
	}
	if len(req.Files) != 0 {
		t.Errorf("Files = %v, want none", req.Files)
	}
}

func TestParseChatRequest_JSONWithoutContentType(t *testing.T) {
	p := NewRequestParser(newStore(t), RequestLimits{})

	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"sessionId":"s1","message":"hi"}`))
	req, err := parse(t, p, r)
	if err != nil {
		t.Fatalf("ParseChatRequest() error = %v", err)
	}
	if req.SessionID != "s1" {
		t.Errorf("SessionID = %q", req.SessionID)
	}
}

func TestParseChatRequest_Multipart(t *testing.T) {
	store := newStore(t)
	p := NewRequestParser(store, RequestLimits{})

	png := []byte("\x89PNG\r\n\x1a\n0000")
	body, ct := multipartBody(t,
		map[string]string{"sessionId": "s1", "message": "Describe this", "model": "gpt-4o"},
		filePart{field: "files", name: "cat.png", mime: "image/png", data: png},
		filePart{field: "anything", name: "../../notes.txt", data: []byte("caption: Tom")},
	)
	r := httptest.NewRequest(http.MethodPost, "/chat", body)
	r.Header.Set("Content-Type", ct)

	req, err := parse(t, p, r)
	if err != nil {
		t.Fatalf("ParseChatRequest() error = %v", err)
	}
	if req.SessionID != "s1" || req.Message != "Describe this" || req.Model != "gpt-4o" {
		t.Errorf("fields = %+v", req)
	}
	if len(req.Files) != 2 {
		t.Fatalf("Files = %d, want 2", len(req.Files))
	}

	img := req.Files[0]
	if img.OriginalName != "cat.png" || img.MimeType != "image/png" || img.SizeBytes != int64(len(png)) {
		t.Errorf("image = %+v", img)
	}
	rc, err := store.Open(context.Background(), img.StorageHandle)
	if err != nil {
		t.Fatalf("stored image missing: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, png) {
		t.Error("stored bytes differ from upload")
	}

	doc := req.Files[1]
	if doc.OriginalName != "notes.txt" {
		t.Errorf("OriginalName = %q, want path stripped", doc.OriginalName)
	}
	if doc.MimeType != "text/plain" {
		t.Errorf("MimeType = %q, want text/plain from extension", doc.MimeType)
	}
	if doc.FileName == "" || doc.FileName == doc.OriginalName {
		t.Errorf("FileName = %q, want a unique stored name", doc.FileName)
	}
}

func TestParseChatRequest_TooManyFilesDiscardsStored(t *testing.T) {
	store := newStore(t)
	p := NewRequestParser(store, RequestLimits{MaxFiles: 1})

	body, ct := multipartBody(t, map[string]string{"sessionId": "s1"},
		filePart{field: "f", name: "a.txt", data: []byte("a")},
		filePart{field: "f", name: "b.txt", data: []byte("b")},
	)
	r := httptest.NewRequest(http.MethodPost, "/chat", body)
	r.Header.Set("Content-Type", ct)

	_, err := parse(t, p, r)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if resp := reqErr.ToErrorResponse(); resp.Status != http.StatusRequestEntityTooLarge || resp.Code != types.CodeRequestTooLarge {
		t.Errorf("response = %+v", resp)
	}

	left, err := store.List(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d blobs left behind, want 0", len(left))
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("upload dir not empty: %d entries", len(entries))
	}
}

func TestParseChatRequest_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		limits      RequestLimits
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "invalid JSON",
			body:        `{"sessionId":`,
			contentType: "application/json",
			wantStatus:  http.StatusBadRequest,
			wantCode:    types.CodeInvalidRequest,
		},
		{
			name:        "body too large",
			body:        `{"sessionId":"s1","message":"` + strings.Repeat("x", 200) + `"}`,
			contentType: "application/json",
			limits:      RequestLimits{MaxBodyBytes: 64},
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    types.CodeRequestTooLarge,
		},
		{
			name:        "unsupported content type",
			body:        "sessionId=s1",
			contentType: "application/x-www-form-urlencoded",
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    types.CodeInvalidRequest,
		},
		{
			name:        "multipart without boundary",
			body:        "x",
			contentType: "multipart/form-data",
			wantStatus:  http.StatusBadRequest,
			wantCode:    types.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestParser(newStore(t), tt.limits)
			r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)

			_, err := parse(t, p, r)
			if err == nil {
				t.Fatal("expected error")
			}
			resp := HandleError(err)
			if resp.HTTPStatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.HTTPStatusCode(), tt.wantStatus)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestParseChatRequest_UploadsDisabled(t *testing.T) {
	p := NewRequestParser(nil, RequestLimits{})

	body, ct := multipartBody(t, map[string]string{"sessionId": "s1"},
		filePart{field: "f", name: "a.txt", data: []byte("a")})
	r := httptest.NewRequest(http.MethodPost, "/chat", body)
	r.Header.Set("Content-Type", ct)

	if _, err := parse(t, p, r); err == nil {
		t.Fatal("expected error when no blob store is configured")
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name, file, declared string
		data                 []byte
		want                 string
	}{
		{"declared wins", "x.bin", "image/jpeg", nil, "image/jpeg"},
		{"declared params stripped", "x", "text/plain; charset=utf-8", nil, "text/plain"},
		{"octet-stream falls back to extension", "photo.PNG", "application/octet-stream", nil, "image/png"},
		{"sniffed when nothing else", "blob", "", []byte("\x89PNG\r\n\x1a\n"), "image/png"},
		{"empty unknown", "blob", "", nil, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMimeType(tt.file, tt.declared, tt.data); got != tt.want {
				t.Errorf("detectMimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}
