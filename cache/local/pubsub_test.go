package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ai:events:arena")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ai:events:arena", "hello"))

	select {
	case msg := <-ch:
		assert.Equal(t, "ai:events:arena", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPubSubUnsubscribe(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	assert.Equal(t, 1, ps.Subscribers("ch"))

	cancel()
	cancel() // second call must not panic
	assert.Equal(t, 0, ps.Subscribers("ch"))

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
	assert.NoError(t, ps.Publish(ctx, "ch", "after"))
}

func TestPubSubDropsWhenFull(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "ch", "first"))
	require.NoError(t, ps.Publish(ctx, "ch", "second"))

	msg := <-ch
	assert.Equal(t, "first", msg.Payload)
	select {
	case m := <-ch:
		t.Fatalf("unexpected message %q", m.Payload)
	default:
	}
}

func TestPubSubMultipleChannels(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	defer cancel()

	_ = ps.Publish(ctx, "a", "1")
	_ = ps.Publish(ctx, "b", "2")
	_ = ps.Publish(ctx, "c", "3")

	got := []string{(<-ch).Payload, (<-ch).Payload}
	assert.Equal(t, []string{"1", "2"}, got)
}
