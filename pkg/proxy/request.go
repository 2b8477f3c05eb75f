package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/proxy/types"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/telemetry/logging"
)

const (
	// DefaultMaxBodyBytes bounds a request body when no limit is configured.
	DefaultMaxBodyBytes = 64 << 20

	// DefaultMaxFiles bounds file parts per request when no limit is configured.
	DefaultMaxFiles = 10

	// maxFieldBytes bounds a single non-file form value.
	maxFieldBytes = 1 << 20
)

// Form field names shared by multipart and JSON bodies.
const (
	FieldSessionID = "sessionId"
	FieldMessage   = "message"
	FieldModel     = "model"
)

// RequestLimits bounds what a single chat request may carry.
type RequestLimits struct {
	MaxBodyBytes int64
	MaxFiles     int
}

// RequestParser turns HTTP chat requests into orchestrator requests. File
// parts are written to the blob store as they are read.
type RequestParser struct {
	blobs  attachments.BlobStore
	limits RequestLimits
}

// NewRequestParser creates a parser. A nil blob store rejects file uploads.
func NewRequestParser(blobs attachments.BlobStore, limits RequestLimits) *RequestParser {
	if limits.MaxBodyBytes <= 0 {
		limits.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultMaxFiles
	}
	return &RequestParser{blobs: blobs, limits: limits}
}

// ParseChatRequest reads a multipart/form-data or application/json chat
// request. The bearer token and request ID are taken from the request
// context, where the auth and request ID middleware put them.
//
// Field presence is not validated here; the orchestrator does that so both
// endpoints report the same errors. If parsing fails after some files were
// stored, those blobs are deleted before returning.
func (p *RequestParser) ParseChatRequest(w http.ResponseWriter, r *http.Request) (*orchestrator.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, p.limits.MaxBodyBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil && r.Header.Get("Content-Type") != "" {
		return nil, &RequestError{Message: "invalid Content-Type header", Code: types.CodeInvalidRequest}
	}

	var req *orchestrator.Request
	switch mediaType {
	case "multipart/form-data":
		req, err = p.parseMultipart(r)
	case "application/json", "":
		req, err = p.parseJSON(r)
	default:
		return nil, &RequestError{
			Message: fmt.Sprintf("unsupported Content-Type %q: use multipart/form-data or application/json", mediaType),
			Code:    types.CodeInvalidRequest,
			Status:  http.StatusUnsupportedMediaType,
		}
	}
	if err != nil {
		return nil, err
	}

	req.Token = auth.TokenFromContext(r.Context())
	req.RequestID = logging.GetRequestID(r.Context())
	return req, nil
}

func (p *RequestParser) parseJSON(r *http.Request) (*orchestrator.Request, error) {
	var body types.ChatRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		if tooLarge(err) {
			return nil, p.tooLargeError()
		}
		return nil, &RequestError{Message: fmt.Sprintf("invalid JSON: %v", err), Code: types.CodeInvalidRequest}
	}
	return &orchestrator.Request{
		SessionID: strings.TrimSpace(body.SessionID),
		Message:   body.Message,
		Model:     strings.TrimSpace(body.Model),
	}, nil
}

func (p *RequestParser) parseMultipart(r *http.Request) (req *orchestrator.Request, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("invalid multipart body: %v", err), Code: types.CodeInvalidRequest}
	}

	req = &orchestrator.Request{}
	defer func() {
		if err != nil {
			p.discard(r.Context(), req.Files)
			req = nil
		}
	}()

	for {
		part, perr := mr.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			if tooLarge(perr) {
				return req, p.tooLargeError()
			}
			return req, &RequestError{Message: fmt.Sprintf("invalid multipart body: %v", perr), Code: types.CodeInvalidRequest}
		}

		if part.FileName() == "" {
			err = readField(part, req)
			part.Close()
			if err != nil {
				return req, err
			}
			continue
		}

		if len(req.Files) >= p.limits.MaxFiles {
			part.Close()
			return req, &RequestError{
				Message: fmt.Sprintf("too many files: at most %d per request", p.limits.MaxFiles),
				Code:    types.CodeRequestTooLarge,
				Status:  http.StatusRequestEntityTooLarge,
			}
		}
		file, ferr := p.storeFile(r.Context(), part)
		part.Close()
		if ferr != nil {
			return req, ferr
		}
		req.Files = append(req.Files, *file)
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Model = strings.TrimSpace(req.Model)
	return req, nil
}

func readField(part *multipart.Part, req *orchestrator.Request) error {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		if tooLarge(err) {
			return &RequestError{Message: "request body too large", Code: types.CodeRequestTooLarge, Status: http.StatusRequestEntityTooLarge}
		}
		return &RequestError{Message: fmt.Sprintf("failed to read form field %q: %v", part.FormName(), err), Code: types.CodeInvalidRequest}
	}
	if len(data) > maxFieldBytes {
		return &RequestError{
			Message: fmt.Sprintf("form field %q exceeds %d bytes", part.FormName(), maxFieldBytes),
			Code:    types.CodeRequestTooLarge,
			Status:  http.StatusRequestEntityTooLarge,
		}
	}

	switch part.FormName() {
	case FieldSessionID:
		req.SessionID = string(data)
	case FieldMessage:
		req.Message = string(data)
	case FieldModel:
		req.Model = string(data)
	}
	return nil
}

// storeFile buffers one file part and writes it to the blob store. The body
// limit bounds the buffer.
func (p *RequestParser) storeFile(ctx context.Context, part *multipart.Part) (*attachments.UploadedFile, error) {
	if p.blobs == nil {
		return nil, &RequestError{Message: "file uploads are disabled", Code: types.CodeInvalidRequest}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, part); err != nil {
		if tooLarge(err) {
			return nil, p.tooLargeError()
		}
		return nil, &RequestError{Message: fmt.Sprintf("failed to read file %q: %v", part.FileName(), err), Code: types.CodeInvalidRequest}
	}

	original := filepath.Base(part.FileName())
	mimeType := detectMimeType(original, part.Header.Get("Content-Type"), buf.Bytes())
	size := int64(buf.Len())

	handle, err := p.blobs.Put(ctx, original, bytes.NewReader(buf.Bytes()), size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store upload %q: %w", original, err)
	}
	return &attachments.UploadedFile{
		FileName:      handle,
		OriginalName:  original,
		MimeType:      mimeType,
		SizeBytes:     size,
		StorageHandle: handle,
	}, nil
}

// detectMimeType prefers the declared part type, then the file extension,
// then content sniffing.
func detectMimeType(name, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		mt, _, _ := mime.ParseMediaType(byExt)
		return mt
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func (p *RequestParser) discard(ctx context.Context, files []attachments.UploadedFile) {
	for _, f := range files {
		_ = p.blobs.Delete(context.WithoutCancel(ctx), f.StorageHandle)
	}
}

func (p *RequestParser) tooLargeError() *RequestError {
	return &RequestError{
		Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", p.limits.MaxBodyBytes),
		Code:    types.CodeRequestTooLarge,
		Status:  http.StatusRequestEntityTooLarge,
	}
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// RequestError represents a request parsing error.
type RequestError struct {
	Message string
	Code    string

	// Status defaults to 400 when zero.
	Status int
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	status := e.Status
	if status == 0 {
		status = http.StatusBadRequest
	}
	code := e.Code
	if code == "" {
		code = types.CodeInvalidRequest
	}
	return types.NewErrorResponse(status, code, e.Message)
}
