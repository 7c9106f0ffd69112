package model_test

import (
	"testing"

	"github.com/kasuganosora/enemyai/model"
	"github.com/kasuganosora/enemyai/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	sp := &model.SpawnPoint{Room: "arena", Archetype: "grunt", X: 1, Z: 2, MaxCount: 3}
	require.NoError(t, db.Create(sp).Error)
	assert.Greater(t, sp.ID, int64(0))

	var found model.SpawnPoint
	require.NoError(t, db.First(&found, sp.ID).Error)
	assert.Equal(t, "grunt", found.Archetype)
	assert.Equal(t, 3, found.MaxCount)

	ev := &model.AgentEvent{
		Room: "arena", AgentID: "a-1", Action: "spawn",
		Detail: datatypes.JSON(`{"x":1}`),
	}
	require.NoError(t, db.Create(ev).Error)
	assert.Greater(t, ev.ID, int64(0))
}

func TestSeedSpawnPoints_OnlyWhenEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	points := []model.SpawnPoint{
		{Room: "arena", Archetype: "grunt", MaxCount: 2},
		{Room: "arena", Archetype: "archer", MaxCount: 1},
		{Room: "pit", Archetype: "brute", MaxCount: 1},
	}

	n, err := model.SeedSpawnPoints(db, points)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = model.SeedSpawnPoints(db, points)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	arena, err := model.LoadSpawnPoints(db, "arena")
	require.NoError(t, err)
	require.Len(t, arena, 2)
	assert.Equal(t, "grunt", arena[0].Archetype)
	assert.Equal(t, "archer", arena[1].Archetype)
}
