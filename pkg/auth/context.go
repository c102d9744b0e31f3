package auth

import (
	"context"
	"strconv"
)

// contextKey is the type for context keys in this package.
type contextKey string

const (
	claimsKey contextKey = "auth:claims"
	tokenKey  contextKey = "auth:token"
)

// ContextWithClaims returns a new context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims from the context, or nil for an
// anonymous request.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// ContextWithToken returns a new context carrying the raw token string.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the raw token string from the context.
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// UserIDFromContext returns the numeric account ID of the caller, or 0 for
// an anonymous request.
func UserIDFromContext(ctx context.Context) uint64 {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return 0
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// InjectAuth injects all authentication information into the context.
func InjectAuth(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = ContextWithClaims(ctx, claims)
	ctx = ContextWithToken(ctx, token)
	return ctx
}
