package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/model"
	"github.com/kasuganosora/enemyai/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())

	svc.Log(audit.Entry{
		TraceID:  "trace-123",
		Room:     "arena",
		AgentID:  "grunt-1",
		Kind:     "fsm",
		Action:   "spawn",
		State:    "Idle",
		Position: ai.Vec3{X: 1, Z: 2},
		Detail:   map[string]string{"archetype": "grunt"},
	})

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var events []model.AgentEvent
	db.Find(&events)
	require.Len(t, events, 1)
	assert.Equal(t, "trace-123", events[0].TraceID)
	assert.Equal(t, "grunt-1", events[0].AgentID)
	assert.Equal(t, "spawn", events[0].Action)
	assert.Equal(t, "Idle", events[0].State)

	var d struct {
		Position ai.Vec3           `json:"position"`
		Extra    map[string]string `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(events[0].Detail, &d))
	assert.Equal(t, 1.0, d.Position.X)
	assert.Equal(t, "grunt", d.Extra["archetype"])
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())

	// 100 entries trigger an immediate batch flush
	for i := 0; i < 100; i++ {
		svc.Log(audit.Entry{Room: "arena", AgentID: "a", Action: "batch"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AgentEvent{}).Count(&count)
	assert.Equal(t, int64(100), count)
}

func TestLog_AfterStopIsDropped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())
	svc.Stop(context.Background())

	svc.Log(audit.Entry{Room: "arena", AgentID: "a", Action: "late"})

	var count int64
	db.Model(&model.AgentEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // must not panic
}

func TestRecent_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := audit.New(db, nop())
	for _, a := range []string{"spawn", "flee", "despawn"} {
		svc.Log(audit.Entry{Room: "arena", AgentID: "a", Action: a})
	}
	svc.Log(audit.Entry{Room: "pit", AgentID: "b", Action: "spawn"})
	svc.Stop(context.Background())

	events, err := audit.Recent(db, "arena", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "despawn", events[0].Action)
	assert.Equal(t, "flee", events[1].Action)
}
