// Package jwt implements auth.Authenticator using JSON Web Tokens.
//
// Tokens carry the account ID as subject and the account role as a custom
// claim. Revocation is delegated to a pluggable Store checked on every
// Verify, so an individual token can be invalidated before its expiry.
package jwt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/errors"
)

// JWT implements auth.Authenticator.
type JWT struct {
	opts   *Options
	store  Store
	method jwt.SigningMethod
}

// Option is a functional option for the JWT authenticator.
type Option func(*JWT)

// WithKey sets the signing key.
func WithKey(key string) Option {
	return func(j *JWT) { j.opts.Key = key }
}

// WithExpired sets the token lifetime.
func WithExpired(d time.Duration) Option {
	return func(j *JWT) { j.opts.Expired = d }
}

// WithIssuer sets the token issuer.
func WithIssuer(issuer string) Option {
	return func(j *JWT) { j.opts.Issuer = issuer }
}

// WithStore sets the token store used for revocation.
func WithStore(store Store) Option {
	return func(j *JWT) { j.store = store }
}

// New creates a new JWT authenticator.
func New(opts ...Option) (*JWT, error) {
	j := &JWT{
		opts:  NewOptions(),
		store: NewMemoryStore(),
	}

	for _, opt := range opts {
		opt(j)
	}

	if err := j.opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate jwt options: %w", err)
	}

	j.method = jwt.GetSigningMethod(j.opts.SigningMethod)
	if j.method == nil {
		return nil, fmt.Errorf("unsupported signing method: %s", j.opts.SigningMethod)
	}

	return j, nil
}

// customClaims extends the registered claims with the role claim.
type customClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Sign creates a new token for the given subject and role claim.
func (j *JWT) Sign(ctx context.Context, subject, role string) (auth.Token, error) {
	now := time.Now()
	expiresAt := now.Add(j.opts.Expired)

	tokenID, err := generateTokenID()
	if err != nil {
		return nil, err
	}

	claims := &customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   subject,
			Issuer:    j.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(j.method, claims).SignedString([]byte(j.opts.Key))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &token{accessToken: signed, expiresAt: expiresAt.Unix()}, nil
}

// Verify parses and validates a token string. A token whose ID is on the
// revocation list fails verification.
func (j *JWT) Verify(ctx context.Context, tokenString string) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(j.opts.Key), nil
	})
	if err != nil {
		return nil, errors.ErrUnauthorized.WithCause(err)
	}

	claims, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.ErrUnauthorized
	}

	if j.store != nil && claims.ID != "" {
		revoked, err := j.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		if revoked {
			return nil, errors.ErrTokenRevoked
		}
	}

	out := &auth.Claims{
		Subject: claims.Subject,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Revoke invalidates a token until its natural expiry.
func (j *JWT) Revoke(ctx context.Context, tokenString string) error {
	claims, err := j.Verify(ctx, tokenString)
	if err != nil {
		// Revoking an already-invalid token is a no-op.
		return nil
	}

	if j.store == nil || claims.TokenID == "" {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return j.store.Revoke(ctx, claims.TokenID, ttl)
}

// token implements auth.Token.
type token struct {
	accessToken string
	expiresAt   int64
}

func (t *token) GetAccessToken() string { return t.accessToken }
func (t *token) GetExpiresAt() int64    { return t.expiresAt }

// generateTokenID returns a random 32-char hex token ID.
func generateTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
