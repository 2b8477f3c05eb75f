/*
Package secrets resolves ${secret:name} references in credential settings.

# Overview

Provider API keys, the token signing secret, the Stripe key, S3 credentials
and the Postgres DSN can be written in the configuration file as references
instead of literal values:

	providers:
	  openai:
	    api_key: ${secret:openai-api-key}
	auth:
	  jwt_secret: ${secret:jwt-secret}

References are looked up in a directory of secret files (the layout of a
mounted Kubernetes or Docker secret) and then in the environment. The first
provider that has the secret wins. Values are cached with a TTL.

# Providers

  - FileProvider: one file per secret under a base directory; files must be
    mode 0600 or 0400. Optionally watches the directory and drops its cache
    when a file changes.
  - EnvProvider: OPENAI_API_KEY for "openai-api-key", with an optional prefix.

# Basic Usage

	manager, err := secrets.NewManagerFromConfig(cfg.Secrets, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.ResolveConfig(ctx, cfg); err != nil {
		return err
	}

Errors name the field and the secret, never the value. A field without a
reference is left untouched.

# Rotation

Refresh drops every cached value so the next ResolveConfig reads the
backends again. The gateway calls it on configuration reload.
*/
package secrets
