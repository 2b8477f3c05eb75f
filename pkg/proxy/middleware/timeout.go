package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds a request with a context deadline. Handlers run
// on the request goroutine and observe the deadline through the context;
// the provider call is cancelled and the error maps to 504.
//
// Streaming routes must not use it: a long answer is not a stuck request.
//
// Example usage:
//
//	handler = TimeoutMiddleware(120 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
