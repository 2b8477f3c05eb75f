package types

import "net/http"

// ErrorResponse is the JSON body of every failed request, and the payload of
// the terminal SSE error event.
type ErrorResponse struct {
	// Error is a human-readable message. It never contains credentials.
	Error string `json:"error"`

	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Status is the HTTP status the error maps to.
	Status int `json:"-"`
}

// Error code constants. Access rejections use the access reason as their
// code (quota_new_chat, quota_messages, premium_required, session_forbidden).
const (
	// CodeInvalidRequest indicates a malformed or incomplete request.
	CodeInvalidRequest = "invalid_request"

	// CodeRequestTooLarge indicates the body or upload count exceeds limits.
	CodeRequestTooLarge = "request_too_large"

	// CodeAuthFailed indicates a missing, malformed or rejected token.
	CodeAuthFailed = "auth_failed"

	// CodeNotFound indicates an unknown session.
	CodeNotFound = "not_found"

	// CodeAttachmentError indicates no attachment produced usable content.
	CodeAttachmentError = "attachment_error"

	// CodeProviderError indicates the provider failed or returned garbage.
	CodeProviderError = "provider_error"

	// CodeProviderNotConfigured indicates the routed provider has no credential.
	CodeProviderNotConfigured = "provider_not_configured"

	// CodeRateLimited indicates the user sent turns faster than allowed.
	CodeRateLimited = "rate_limited"

	// CodeTimeout indicates the request exceeded the server's deadline.
	CodeTimeout = "timeout"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates an error response.
func NewErrorResponse(status int, code, message string) *ErrorResponse {
	return &ErrorResponse{Error: message, Code: code, Status: status}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternalError, message)
}

// NewBadGatewayError creates an error response for provider errors (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadGateway, CodeProviderError, message)
}

// NewGatewayTimeoutError creates an error response for timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusGatewayTimeout, CodeTimeout, message)
}

// HTTPStatusCode returns the HTTP status for the error, defaulting to 500.
func (e *ErrorResponse) HTTPStatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}
