/*
Package auth verifies the bearer tokens that identify chat users.

Tokens are HS256 JWTs. The user id is taken from the "uid" claim, falling
back to "sub"; an expiry is required.

# Basic Usage

	authn, err := auth.NewJWTAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	id, err := authn.Authenticate(ctx, token)
	if err != nil {
		// *auth.AuthError, maps to 401 auth_failed
	}

# Middleware

RequireBearer turns away requests without a well-formed Authorization
header. RequireAuth also verifies the token, so uploads from forged or
expired tokens are never read:

	mux.Handle("POST /chat", auth.RequireAuth(authn, handlers.AuthError)(chatHandler))

Inside the handler the raw token is available through TokenFromContext and
the verified identity through IdentityFromContext. The orchestrator still
authenticates the token as the first step of a turn, since it can be
driven without the HTTP layer.

# Issuing Tokens

IssueToken signs development tokens; the CLI exposes it as `parley token`.
*/
package auth
