package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Custom keys live in the "parley.*" namespace.
const (
	AttrProvider = "parley.provider"
	AttrModel    = "parley.model"

	AttrRequestID = "parley.request_id"
	AttrSessionID = "parley.session_id"
	AttrUserID    = "parley.user_id"

	AttrAttachmentCount = "parley.attachments.count"
	AttrChunkCount      = "parley.stream.chunks"

	AttrAccessReason = "parley.access.reason"
	AttrErrorMessage = "error.message"
)

// SetProviderAttributes sets provider-related attributes on a span.
//
// Example:
//
//	SetProviderAttributes(span, "anthropic", "claude-3-opus-20240229")
func SetProviderAttributes(span trace.Span, provider, model string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
}

// SetSessionAttributes sets the session and user on a span, skipping empty
// values.
func SetSessionAttributes(span trace.Span, sessionID, userID string) {
	var attrs []attribute.KeyValue
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(AttrUserID, userID))
	}
	span.SetAttributes(attrs...)
}

// SetAccessDenied records an access rejection on the span.
func SetAccessDenied(span trace.Span, reason string) {
	span.SetAttributes(attribute.String(AttrAccessReason, reason))
	span.AddEvent("access_denied", trace.WithAttributes(attribute.String(AttrAccessReason, reason)))
}
