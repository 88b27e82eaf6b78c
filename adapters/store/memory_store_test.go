package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeAndCheck(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "token-1", time.Minute))

	revoked, err = s.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other tokens are unaffected.
	revoked, err = s.IsRevoked(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "token-1", 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	revoked, err := s.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation should lapse with the token's own expiry")
}

func TestRevokeSweepsLapsedEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "old", 5*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Revoke(ctx, "new", time.Minute))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.revoked, 1)
}
