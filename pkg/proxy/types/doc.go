// Package types defines the JSON bodies exchanged with chat clients.
//
// # Requests
//
// ChatRequest is accepted as application/json on POST /chat and
// POST /chat/stream. The same fields arrive as form values in
// multipart/form-data requests, where any file part is an attachment.
//
// # Responses
//
//   - ChatResponse: body of a successful POST /chat
//   - StreamEvent: payload of one "data:" line on POST /chat/stream
//   - ErrorResponse: {"error": "...", "code": "..."} for every failure
//
// A stream is a sequence of chunk events followed by exactly one terminal
// event, either {"done":true} or an error event:
//
//	data: {"chunk":"Hel"}
//
//	data: {"chunk":"lo"}
//
//	data: {"done":true}
package types
