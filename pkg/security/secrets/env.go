package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The secret
// "openai-api-key" is read from Prefix+"OPENAI_API_KEY".
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret returns the variable's value. Unset and empty variables are
// both reported as not found.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	if value, ok := os.LookupEnv(envVar); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s is not set", ErrNotFound, envVar)
}

// Provider returns "env".
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports reports true for any name.
func (p *EnvProvider) Supports(name string) bool {
	return name != ""
}

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
