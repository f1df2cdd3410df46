package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	token, err := store.Get(ctx, "inst-1")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Set(ctx, "inst-1", "tok-1", time.Hour))
	require.NoError(t, store.Set(ctx, "inst-2", "tok-2", time.Hour))

	token, err = store.Get(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, store.Delete(ctx, "inst-1"))

	token, _ = store.Get(ctx, "inst-1")
	assert.Empty(t, token)

	token, _ = store.Get(ctx, "inst-2")
	assert.Equal(t, "tok-2", token, "other instances untouched")
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)

	store := NewMemory()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "inst-1", "tok-1", time.Minute))
	require.NoError(t, store.Set(ctx, "inst-2", "tok-2", 0))

	now = now.Add(2 * time.Minute)

	token, err := store.Get(ctx, "inst-1")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.NotContains(t, store.entries, "inst-1", "expired entries are dropped on read")

	token, _ = store.Get(ctx, "inst-2")
	assert.Equal(t, "tok-2", token, "zero ttl never expires")
}
