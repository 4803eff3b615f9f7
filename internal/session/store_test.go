package session

import (
	"context"
	"testing"
	"time"

	redispkg "wallfeed/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redispkg.NewAdapter(redispkg.NewClient(mr.Addr()))
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store := NewRedisStore(client, "default")

	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save(ctx, "abc", time.Minute))
	assert.True(t, mr.Exists("session:default"))

	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	mr.FastForward(2 * time.Minute)
	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save(ctx, "def", time.Minute))
	require.NoError(t, store.Delete(ctx))
	assert.False(t, mr.Exists("session:default"))
}

func TestGuard_WithRedisStore_ClearsExpired(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redispkg.NewAdapter(redispkg.NewClient(mr.Addr()))
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	store := NewRedisStore(client, "default")
	require.NoError(t, store.Save(ctx, tokenExpiringAt(t, fixedNow.Add(-10*time.Second)), time.Hour))

	g := newTestGuard(store)
	assert.False(t, g.Valid(ctx))
	assert.False(t, mr.Exists("session:default"))
}
