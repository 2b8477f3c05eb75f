package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a provider has no value for a secret.
var ErrNotFound = errors.New("secret not found")

// SecretProvider retrieves secrets from one backend.
type SecretProvider interface {
	// GetSecret returns the value of name. A missing secret yields an error
	// wrapping ErrNotFound.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the backend name (env, file).
	Provider() string

	// Supports reports whether the provider can look up name at all. The
	// manager skips providers that do not.
	Supports(name string) bool
}

// RefreshableProvider can drop its own cached values.
type RefreshableProvider interface {
	SecretProvider

	// Refresh discards cached values so the next lookup reads the backend.
	Refresh(ctx context.Context) error
}
