package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mercator-hq/parley/pkg/config"
)

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return secretRefRegex.MatchString(s)
}

// ResolveConfig replaces references in cfg's credential fields in place.
// Fields without a reference are not touched. Every failing field is
// reported; the error never contains a resolved value.
func (m *Manager) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	var errs []error
	resolve := func(field string, v *string) {
		if !HasReference(*v) {
			return
		}
		out, err := m.ResolveReferences(ctx, *v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*v = out
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Providers[name]
		resolve("providers."+name+".api_key", &p.APIKey)
		cfg.Providers[name] = p
	}

	resolve("auth.jwt_secret", &cfg.Auth.JWTSecret)
	resolve("billing.stripe_api_key", &cfg.Billing.StripeAPIKey)
	resolve("attachments.s3.access_key_id", &cfg.Attachments.S3.AccessKeyID)
	resolve("attachments.s3.secret_access_key", &cfg.Attachments.S3.SecretAccessKey)
	resolve("storage.postgres.dsn", &cfg.Storage.Postgres.DSN)

	return errors.Join(errs...)
}

// Resolve resolves cfg with a manager built from cfg.Secrets and closes it
// again. One-shot commands use it; long-running processes keep a Manager.
func Resolve(ctx context.Context, cfg *config.Config) error {
	m, err := NewManagerFromConfig(config.SecretsConfig{
		Dir:       cfg.Secrets.Dir,
		EnvPrefix: cfg.Secrets.EnvPrefix,
	}, nil)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.ResolveConfig(ctx, cfg)
}
