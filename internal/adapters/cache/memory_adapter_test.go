package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obafela/venuescout/backend/internal/domain/providers"
)

func TestMemoryAdapter_SetGet(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryAdapter_Miss(t *testing.T) {
	a := NewMemoryAdapter()
	_, err := a.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_TTLExpiry(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	now := time.Now()
	a.now = func() time.Time { return now }
	require.NoError(t, a.Set(ctx, "k", []byte("v"), 10*time.Second))

	a.now = func() time.Time { return now.Add(11 * time.Second) }
	_, err := a.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	exists, err := a.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryAdapter_SetIfAbsent(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	ok, err := a.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.SetIfAbsent(ctx, "lock", []byte("2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Holder value is untouched by the losing attempt
	got, err := a.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestMemoryAdapter_SetIfAbsent_ExpiredKeyIsAbsent(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	now := time.Now()
	a.now = func() time.Time { return now }
	ok, err := a.SetIfAbsent(ctx, "lock", []byte("1"), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed holder's lock is reaped by its TTL
	a.now = func() time.Time { return now.Add(6 * time.Second) }
	ok, err = a.SetIfAbsent(ctx, "lock", []byte("2"), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryAdapter_Delete(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, a.Delete(ctx, "k"))

	_, err := a.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
