package auth

import (
	"context"
	"fmt"
	"time"
)

// Identity is the authenticated caller.
type Identity struct {
	// UserID is the stable user identifier the gateway keys quotas and
	// ownership on.
	UserID string

	// ExpiresAt is the token expiry (zero if the token has none).
	ExpiresAt time.Time
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// AuthError is returned for a missing, malformed, expired or forged token.
// Reason is safe to show to clients; it never contains the token.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Code returns the client-facing error code.
func (e *AuthError) Code() string {
	return "auth_failed"
}
