// Package proxy is the HTTP boundary of the chat gateway.
//
// It turns HTTP requests into orchestrator requests, and orchestrator output
// and errors back into HTTP responses. The endpoints themselves live in the
// handlers subpackage, cross-cutting concerns in middleware, and JSON bodies
// in types.
//
// # Request Parsing
//
// RequestParser accepts two body forms:
//
//   - multipart/form-data: sessionId, message and model as form values; any
//     part with a file name is an upload, written to the blob store while
//     the body is read
//   - application/json: {"sessionId": "...", "message": "...", "model": "..."}
//
// The body is capped by server.max_body_bytes and file parts by
// attachments.max_files. When parsing fails midway, blobs already stored for
// the request are deleted.
//
// # Streaming
//
// SSESink implements orchestrator.Sink over an http.ResponseWriter:
//
//	data: {"chunk":"Hel"}
//
//	data: {"chunk":"lo"}
//
//	data: {"done":true}
//
// Headers are written with the first event. A turn that fails before any
// chunk therefore still gets its mapped status (400, 401, 403, 404, 502,
// ...) along with the error event; after the first chunk the status is 200
// and the failure is only visible as the terminal error event.
//
// # Error Mapping
//
// HandleError is the single place errors become status codes:
//
//	orchestrator.ValidationError, RequestError  400 invalid_request
//	auth.AuthError                              401 auth_failed
//	access.AccessDeniedError                    403 <reason>
//	orchestrator.ErrSessionNotFound             404 not_found
//	attachments.AttachmentError                 400 attachment_error
//	providers.ConfigError                       503 provider_not_configured
//	providers.ProviderError                     502 provider_error
//	anything else                               500 internal_error
//
// Bodies are always {"error": "...", "code": "..."}.
package proxy
