package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/parley/pkg/access"
	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/proxy/types"
	"mercator-hq/parley/pkg/security/auth"
)

// HandleError converts an error from request parsing or a chat turn to the
// client-facing error body and status.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var verr *orchestrator.ValidationError
	if errors.As(err, &verr) {
		return types.NewInvalidRequestError(fmt.Sprintf("%s %s", verr.Field, verr.Message))
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return types.NewErrorResponse(http.StatusUnauthorized, authErr.Code(), authErr.Error())
	}

	var denied *access.AccessDeniedError
	if errors.As(err, &denied) {
		return types.NewErrorResponse(http.StatusForbidden, denied.Code(), denied.Error())
	}

	if errors.Is(err, orchestrator.ErrSessionNotFound) {
		return types.NewErrorResponse(http.StatusNotFound, types.CodeNotFound, "session not found")
	}

	var attErr *attachments.AttachmentError
	if errors.As(err, &attErr) {
		return types.NewErrorResponse(http.StatusBadRequest, types.CodeAttachmentError,
			fmt.Sprintf("no usable content in attachments (%s)", attErr.File))
	}

	var cfgErr *providers.ConfigError
	if errors.As(err, &cfgErr) {
		return types.NewErrorResponse(http.StatusServiceUnavailable, types.CodeProviderNotConfigured, cfgErr.Error())
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		return types.NewBadGatewayError(providerErr.Error())
	}

	var provValErr *providers.ValidationError
	if errors.As(err, &provValErr) {
		return types.NewInvalidRequestError(provValErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("the request took too long to complete")
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
