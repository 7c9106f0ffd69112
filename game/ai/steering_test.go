package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuery blocks any probe whose direction lies within 1° of a blocked
// heading and returns its entities from OverlapSphere in order.
type fakeQuery struct {
	blocked  []Vec3
	entities []Entity
}

func (q *fakeQuery) OverlapSphere(center Vec3, radius float64, mask Layer) []Entity {
	var out []Entity
	for _, e := range q.entities {
		if e.Layer.Has(mask) && FlatDistance(center, e.Position) <= radius {
			out = append(out, e)
		}
	}
	return out
}

func (q *fakeQuery) Raycast(origin, dir Vec3, maxDistance float64, mask Layer) (Hit, bool) {
	for _, b := range q.blocked {
		if Angle(dir, b) < 1 {
			return Hit{Point: origin.Add(dir.Scale(maxDistance / 2)), Distance: maxDistance / 2}, true
		}
	}
	return Hit{}, false
}

func vecNear(t *testing.T, want, got Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-6, "z")
}

func self() Entity {
	return Entity{ID: "self", Forward: WorldForward, Faction: 1, Layer: LayerEnemy}
}

func TestCompass_Order(t *testing.T) {
	c := Compass(WorldForward)
	s := 1 / math.Sqrt2
	vecNear(t, Vec3{0, 0, 1}, c[0])
	vecNear(t, Vec3{0, 0, -1}, c[1])
	vecNear(t, Vec3{-1, 0, 0}, c[2])
	vecNear(t, Vec3{1, 0, 0}, c[3])
	vecNear(t, Vec3{s, 0, s}, c[4])
	vecNear(t, Vec3{-s, 0, s}, c[5])
	vecNear(t, Vec3{s, 0, -s}, c[6])
	vecNear(t, Vec3{-s, 0, -s}, c[7])
}

func TestCompass_ZeroForwardFallsBackToWorld(t *testing.T) {
	assert.Equal(t, Compass(WorldForward), Compass(Vec3{}))
}

func TestEvaluate_PicksGoalCandidate(t *testing.T) {
	cfg := DefaultSteeringSettings()
	e := NewEvaluator(nil, &cfg)
	vecNear(t, Vec3{1, 0, 0}, e.Evaluate(self(), Vec3{1, 0, 0}, 0, 0.5))
	assert.InDelta(t, 1.0, e.Candidates()[3].Weight, 1e-9)
}

func TestEvaluate_BlockedCandidateVetoed(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{blocked: []Vec3{{1, 0, 0}}}
	e := NewEvaluator(q, &cfg)

	got := e.Evaluate(self(), Vec3{1, 0, 0}, 0, 0.5)
	// Forward-right and back-right tie; forward-right comes first.
	vecNear(t, Vec3{1, 0, 1}.Normalize(), got)

	c := e.Candidates()[3]
	assert.True(t, c.Blocked)
	assert.Equal(t, VetoWeight, c.Weight)
}

func TestEvaluate_AllBlockedIsZero(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{}
	for _, c := range Compass(WorldForward) {
		q.blocked = append(q.blocked, c)
	}
	e := NewEvaluator(q, &cfg)
	assert.True(t, e.Evaluate(self(), Vec3{0, 0, 1}, 0, 0.5).IsZero())
}

func TestEvaluate_ZeroGoalIsZero(t *testing.T) {
	cfg := DefaultSteeringSettings()
	e := NewEvaluator(nil, &cfg)
	assert.True(t, e.Evaluate(self(), Vec3{}, 0, 0.5).IsZero())
	assert.True(t, e.Evaluate(self(), Vec3{0, 3, 0}, 0, 0.5).IsZero(), "vertical goal")
}

func TestEvaluate_NilSettingsIsZero(t *testing.T) {
	e := NewEvaluator(nil, nil)
	assert.True(t, e.Evaluate(self(), Vec3{1, 0, 0}, 0, 0.5).IsZero())

	var nilEval *Evaluator
	assert.True(t, nilEval.Evaluate(self(), Vec3{1, 0, 0}, 0, 0.5).IsZero())
	assert.True(t, nilEval.Separation(self()).IsZero())
}

func TestEvaluate_WorldFrame(t *testing.T) {
	cfg := DefaultSteeringSettings()
	cfg.Frame = FrameWorld
	e := NewEvaluator(nil, &cfg)
	s := self()
	s.Forward = Vec3{1, 0, 0}
	e.Evaluate(s, Vec3{0, 0, 1}, 0, 0)
	// In the world frame the first candidate is +Z whatever the facing.
	vecNear(t, WorldForward, e.Candidates()[0].Dir)
}

func TestEvaluate_LateralBonusNearGoal(t *testing.T) {
	cfg := DefaultSteeringSettings()
	e := NewEvaluator(nil, &cfg)
	e.Evaluate(self(), Vec3{0, 0, 1}, 1, 0)
	c := e.Candidates()
	assert.InDelta(t, 1.0, c[0].Weight, 1e-9)
	assert.InDelta(t, cfg.LateralBonus, c[3].Weight, 1e-9)

	e.Evaluate(self(), Vec3{0, 0, 1}, 5, 0)
	assert.InDelta(t, 0.0, e.Candidates()[3].Weight, 1e-9, "no bonus far from the goal")
}

func TestEvaluate_Deterministic(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{
		blocked: []Vec3{{0, 0, 1}},
		entities: []Entity{
			{ID: "a", Position: Vec3{0.5, 0, 1}, Faction: 1, Layer: LayerEnemy},
			{ID: "b", Position: Vec3{-1, 0, 0.8}, Faction: 1, Layer: LayerEnemy},
		},
	}
	e := NewEvaluator(q, &cfg)
	first := e.Evaluate(self(), Vec3{0.2, 0, 1}, 0, 0.5)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, e.Evaluate(self(), Vec3{0.2, 0, 1}, 0, 0.5))
	}
}

func TestSeparation_RotatedAwayFromNeighbour(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{entities: []Entity{
		{ID: "self", Position: Vec3{}, Faction: 1, Layer: LayerEnemy},
		{ID: "mate", Position: Vec3{1, 0, 0}, Faction: 1, Layer: LayerEnemy},
	}}
	e := NewEvaluator(q, &cfg)
	got := e.Separation(self())
	// (-1,0,0) turned 30° toward +Z.
	vecNear(t, Vec3{-math.Sqrt(3) / 2, 0, 0.5}, got)
}

func TestSeparation_IgnoresOtherFactions(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{entities: []Entity{
		{ID: "foe", Position: Vec3{1, 0, 0}, Faction: 2, Layer: LayerEnemy},
		{ID: "far", Position: Vec3{5, 0, 0}, Faction: 1, Layer: LayerEnemy},
	}}
	e := NewEvaluator(q, &cfg)
	assert.True(t, e.Separation(self()).IsZero())
}

func TestEvaluate_NeighbourPenalisesFacingCandidates(t *testing.T) {
	cfg := DefaultSteeringSettings()
	q := &fakeQuery{entities: []Entity{
		{ID: "mate", Position: Vec3{0, 0, 1}, Faction: 1, Layer: LayerEnemy},
	}}
	e := NewEvaluator(q, &cfg)
	e.Evaluate(self(), Vec3{0, 0, 1}, 0, 0)
	c := e.Candidates()
	want := 1 - cfg.SeparationPenalty*(1-1/cfg.SeparationRadius)
	assert.InDelta(t, want, c[0].Weight, 1e-9)
	assert.InDelta(t, -1.0, c[1].Weight, 1e-9, "backing off is not penalised")
}

func TestSmooth(t *testing.T) {
	next := Vec3{1, 0, 0}
	assert.Equal(t, next, Smooth(Vec3{}, next, 5, 0.1))
	assert.True(t, Smooth(next, Vec3{}, 5, 0.1).IsZero())
	assert.Equal(t, next, Smooth(Vec3{0, 0, 1}, next, 0, 0.1))

	mid := Smooth(Vec3{0, 0, 1}, next, 5, 0.1) // t = 0.5
	vecNear(t, Vec3{1, 0, 1}.Normalize(), mid)
}
