package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mercator-hq/parley/pkg/config"
)

// MinSecretLength is the shortest accepted HS256 secret.
const MinSecretLength = 16

// Claims are the token claims. UserID falls back to the subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid,omitempty"`
}

// JWTAuthenticator verifies HS256 bearer tokens.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTAuthenticator creates an authenticator from cfg.
func NewJWTAuthenticator(cfg config.AuthConfig) (*JWTAuthenticator, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinSecretLength)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &JWTAuthenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		parser: jwt.NewParser(opts...),
		now:    time.Now,
	}, nil
}

// Authenticate verifies token and returns the caller's identity.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, &AuthError{Reason: "missing bearer token"}
	}

	claims := &Claims{}
	parsed, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &AuthError{Reason: "token expired", Err: err}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, &AuthError{Reason: "malformed token", Err: err}
		default:
			return nil, &AuthError{Reason: "invalid token", Err: err}
		}
	}
	if !parsed.Valid {
		return nil, &AuthError{Reason: "invalid token"}
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, &AuthError{Reason: "token has no subject"}
	}

	id := &Identity{UserID: userID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IssueToken signs a token for userID. A zero ttl uses the configured
// token lifetime.
func (a *JWTAuthenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if ttl == 0 {
		ttl = a.ttl
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(a.secret)
}
