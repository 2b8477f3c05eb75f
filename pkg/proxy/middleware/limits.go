package middleware

import (
	"fmt"
	"net/http"

	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/proxy/types"
)

// LimitsMiddleware rejects requests whose declared Content-Length exceeds
// maxBytes with 413 before any handler work, and caps the body for requests
// that do not declare a length.
//
// Example:
//
//	handler := LimitsMiddleware(cfg.Server.MaxBodyBytes)(next)
func LimitsMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
					http.StatusRequestEntityTooLarge,
					types.CodeRequestTooLarge,
					fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
				))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
