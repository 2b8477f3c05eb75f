package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if value == "" {
		return "", &AuthError{Reason: "missing bearer token"}
	}

	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", &AuthError{Reason: "authorization header must use the Bearer scheme"}
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", &AuthError{Reason: "malformed bearer token"}
	}
	return token, nil
}

// RequireBearer rejects requests without a well-formed bearer token before
// the handler runs. The raw token is stored in the request context for the
// handler to verify; see TokenFromContext.
func RequireBearer(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				slog.WarnContext(r.Context(), "missing bearer token",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth is RequireBearer plus verification of the token with authn,
// so forged or expired tokens are turned away before the handler reads the
// request body. The verified identity is available through
// IdentityFromContext.
func RequireAuth(authn Authenticator, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	bearer := RequireBearer(onError)
	return func(next http.Handler) http.Handler {
		return bearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r.Context(), TokenFromContext(r.Context()))
			if err != nil {
				slog.WarnContext(r.Context(), "bearer token rejected",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}

// Context keys
type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const (
	tokenKey    contextKey = "bearer_token"
	identityKey contextKey = "identity"
)

// TokenFromContext returns the bearer token stored by RequireBearer.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// IdentityFromContext returns the identity verified by RequireAuth.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}
