// Package auth defines the authentication contract shared by the JWT
// implementation, the HTTP middleware and the realtime channel.
package auth

import (
	"context"
	"time"
)

// Claims is the verified identity attached to an authenticated request.
type Claims struct {
	// Subject is the account ID as a decimal string.
	Subject string

	// Role is the account role claim embedded in the token.
	Role string

	// TokenID is the unique token identifier (jti), used for revocation.
	TokenID string

	// ExpiresAt is the token expiry.
	ExpiresAt time.Time
}

// Token is an issued access token.
type Token interface {
	// GetAccessToken returns the signed token string.
	GetAccessToken() string

	// GetExpiresAt returns the expiry as a Unix timestamp.
	GetExpiresAt() int64
}

// Authenticator issues, verifies and revokes access tokens.
type Authenticator interface {
	// Sign creates a new token for the given subject and role claim.
	Sign(ctx context.Context, subject, role string) (Token, error)

	// Verify parses and validates a token string, including the
	// revocation-list check.
	Verify(ctx context.Context, tokenString string) (*Claims, error)

	// Revoke invalidates a token until its natural expiry.
	Revoke(ctx context.Context, tokenString string) error
}
