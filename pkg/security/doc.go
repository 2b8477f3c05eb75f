/*
Package security groups the gateway's transport, credential and identity
packages.

  - auth: HS256 bearer tokens that identify chat users
  - secrets: ${secret:name} references in credential settings, resolved
    from secret files or the environment
  - tls: HTTPS listener configuration with certificate rotation

# TLS

	server:
	  tls:
	    enabled: true
	    cert_file: /etc/parley/certs/cert.pem
	    key_file: /etc/parley/certs/key.pem
	    min_version: "1.3"

For development, "parley certs generate" writes a self-signed pair.

# Secrets

	secrets:
	  dir: /run/secrets
	providers:
	  openai:
	    api_key: ${secret:openai-api-key}

# Tokens

	authn, err := auth.NewJWTAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}
	id, err := authn.Authenticate(ctx, token)
*/
package security
