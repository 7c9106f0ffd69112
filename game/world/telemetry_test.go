package world

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	ps, err := cache.NewPubSub(cache.CacheConfig{LocalPubSubBuf: 8})
	require.NoError(t, err)
	return c, ps
}

func TestTelemetry_FlushAndRead(t *testing.T) {
	c, ps := localCache(t)
	tel := NewTelemetry(c, ps, time.Minute, nil)
	r, sp := testRoom(t, nil)
	r.SetPlayer("player", ai.Vec3{}, 100)
	near := build(t, sp, "grunt", ai.Vec3{X: 2})
	far := build(t, sp, "grunt", ai.Vec3{X: 20})
	r.Spawn(far)
	r.Spawn(near)
	r.Tick(0.25)

	ctx := context.Background()
	require.NoError(t, tel.Flush(ctx, r))
	rep, err := tel.Read(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, "arena", rep.Room)
	require.Len(t, rep.Ranking, 2)
	assert.Equal(t, near.ID(), rep.Ranking[0].ID)
	assert.Greater(t, rep.Ranking[0].Priority, rep.Ranking[1].Priority)
	require.Len(t, rep.Agents, 2)
	assert.Equal(t, KindFSM, rep.Agents[far.ID()].Kind)
	assert.Empty(t, rep.Events)

	// A second flush replaces rather than accumulates.
	r.Despawn(far.ID())
	r.Tick(0.25)
	require.NoError(t, tel.Flush(ctx, r))
	rep, err = tel.Read(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, rep.Ranking, 1)
	assert.Len(t, rep.Agents, 1)
}

func TestTelemetry_ReadUnknownRoom(t *testing.T) {
	c, _ := localCache(t)
	tel := NewTelemetry(c, nil, 0, nil)
	rep, err := tel.Read(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, rep.Ranking)
	assert.Empty(t, rep.Agents)
	assert.Empty(t, rep.Events)
}

func TestTelemetry_LogCapsAndPublishes(t *testing.T) {
	c, ps := localCache(t)
	tel := NewTelemetry(c, ps, 0, nil)
	ctx := context.Background()
	msgs, cancel, err := ps.Subscribe(ctx, EventsChannel("arena"))
	require.NoError(t, err)
	defer cancel()

	tel.Log(audit.Entry{TraceID: "t-1", Room: "arena", AgentID: "a-1", Kind: KindFSM, Action: "spawn", State: "idle",
		Position: ai.Vec3{X: 1, Z: 2}})
	select {
	case m := <-msgs:
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &got))
		assert.Equal(t, "t-1", got["trace_id"])
		assert.Equal(t, "spawn", got["action"])
		assert.Equal(t, 1.0, got["x"])
		assert.Equal(t, 2.0, got["z"])
	case <-time.After(time.Second):
		t.Fatal("event not published")
	}

	for i := 0; i < EventTail+5; i++ {
		tel.Log(audit.Entry{Room: "arena", AgentID: fmt.Sprintf("a-%d", i), Action: "despawn"})
	}
	rep, err := tel.Read(ctx, "arena")
	require.NoError(t, err)
	require.Len(t, rep.Events, EventTail)

	var newest map[string]interface{}
	require.NoError(t, json.Unmarshal(rep.Events[0], &newest))
	assert.Equal(t, fmt.Sprintf("a-%d", EventTail+4), newest["agent_id"], "newest first")
}

func TestJournals_FanOut(t *testing.T) {
	a, b := &memJournal{}, &memJournal{}
	js := Journals{a, nil, b}
	js.Log(audit.Entry{Action: "kill"})
	assert.Equal(t, []string{"kill"}, a.actions())
	assert.Equal(t, []string{"kill"}, b.actions())
}
