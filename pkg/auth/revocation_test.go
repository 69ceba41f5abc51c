package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.revocations.Revoke(ctx, "short-lived", now.Add(time.Minute)))
	require.NoError(t, f.revocations.Revoke(ctx, "long-lived", now.Add(time.Hour)))
	require.NoError(t, f.revocations.Revoke(ctx, "long-lived", now.Add(time.Hour)))
	require.NoError(t, f.revocations.Revoke(ctx, "already-expired", now.Add(-time.Minute)))

	assert.Equal(t, 2, f.store.Revoked().Len())

	revoked, err := f.revocations.IsRevoked(ctx, "already-expired")
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := f.revocations.PurgeExpired(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revoked, err = f.revocations.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = f.revocations.IsRevoked(ctx, "long-lived")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestTokenHashIsStable(t *testing.T) {
	assert.Equal(t, tokenHash("abc"), tokenHash("abc"))
	assert.Len(t, tokenHash("abc"), 64)
	assert.NotEqual(t, tokenHash("abc"), tokenHash("abd"))
}

func TestSweeper(t *testing.T) {
	f := newFixture(t)

	_, err := NewSweeper(f.revocations, "not a schedule")
	assert.Error(t, err)

	require.NoError(t, f.revocations.Revoke(context.Background(), "expiring", time.Now().Add(time.Hour)))
	f.revocations.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	sweeper, err := NewSweeper(f.revocations, "@every 1h")
	require.NoError(t, err)
	sweeper.sweep()

	assert.Equal(t, 0, f.store.Revoked().Len())
}
