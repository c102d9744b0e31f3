package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-secret-key-that-is-long-enough-0123"

func newTestJWT(t *testing.T, opts ...Option) *JWT {
	t.Helper()
	j, err := New(append([]Option{WithKey(testKey)}, opts...)...)
	require.NoError(t, err)
	return j
}

func TestNewValidatesKey(t *testing.T) {
	_, err := New(WithKey("short"))
	assert.Error(t, err)

	_, err = New(WithKey(testKey))
	assert.NoError(t, err)
}

func TestSignAndVerify(t *testing.T) {
	j := newTestJWT(t)
	ctx := context.Background()

	token, err := j.Sign(ctx, "42", "STUDENT")
	require.NoError(t, err)
	assert.NotEmpty(t, token.GetAccessToken())
	assert.Greater(t, token.GetExpiresAt(), time.Now().Unix())

	claims, err := j.Verify(ctx, token.GetAccessToken())
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "STUDENT", claims.Role)
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	j := newTestJWT(t)

	_, err := j.Verify(context.Background(), "not.a.token")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	j := newTestJWT(t)
	other := newTestJWT(t)
	other.opts.Key = "another-secret-key-that-is-long-enough-1"

	token, err := j.Sign(ctx, "1", "ADMIN")
	require.NoError(t, err)

	_, err = other.Verify(ctx, token.GetAccessToken())
	assert.Error(t, err)
}

func TestRevoke(t *testing.T) {
	j := newTestJWT(t)
	ctx := context.Background()

	token, err := j.Sign(ctx, "7", "CONSULTANT")
	require.NoError(t, err)

	_, err = j.Verify(ctx, token.GetAccessToken())
	require.NoError(t, err)

	require.NoError(t, j.Revoke(ctx, token.GetAccessToken()))

	_, err = j.Verify(ctx, token.GetAccessToken())
	assert.Error(t, err, "revoked token must fail verification")

	// Revoking again (now invalid) is a no-op.
	assert.NoError(t, j.Revoke(ctx, token.GetAccessToken()))
}

func TestRevokeDoesNotAffectOtherTokens(t *testing.T) {
	j := newTestJWT(t)
	ctx := context.Background()

	a, err := j.Sign(ctx, "1", "STUDENT")
	require.NoError(t, err)
	b, err := j.Sign(ctx, "1", "STUDENT")
	require.NoError(t, err)

	require.NoError(t, j.Revoke(ctx, a.GetAccessToken()))

	_, err = j.Verify(ctx, b.GetAccessToken())
	assert.NoError(t, err, "revocation is per token, not per subject")
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(WithCleanupInterval(10 * time.Millisecond))
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "abc", time.Minute))
	revoked, err = s.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	// An entry past its expiry no longer reports revoked.
	require.NoError(t, s.Revoke(ctx, "gone", -time.Second))
	revoked, err = s.IsRevoked(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, revoked)
}
