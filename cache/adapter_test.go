package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/enemyai/cache/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_LocalWhenNoRedis(t *testing.T) {
	c, err := NewCache(CacheConfig{LocalGCInterval: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.(*local.LocalCache)
	assert.True(t, ok)

	_, err = c.Get(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewPubSub_LocalAdapter(t *testing.T) {
	ps, err := NewPubSub(CacheConfig{LocalPubSubBuf: 4})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ai:events:arena")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ai:events:arena", `{"action":"spawn"}`))
	select {
	case msg := <-ch:
		assert.Equal(t, "ai:events:arena", msg.Channel)
		assert.Equal(t, `{"action":"spawn"}`, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("no message through adapter")
	}
}

func TestIsNotFound_OtherErrors(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(context.Canceled))
}
