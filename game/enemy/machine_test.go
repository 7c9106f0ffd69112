package enemy

import (
	"math/rand"
	"testing"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// pillar is a vertical obstacle of radius r standing at c.
type pillar struct {
	c ai.Vec3
	r float64
}

type fakeWorld struct {
	targets []ai.Entity
	pillars []pillar
}

func (w *fakeWorld) OverlapSphere(center ai.Vec3, radius float64, mask ai.Layer) []ai.Entity {
	var out []ai.Entity
	for _, e := range w.targets {
		if e.Layer.Has(mask) && ai.FlatDistance(center, e.Position) <= radius {
			out = append(out, e)
		}
	}
	return out
}

func (w *fakeWorld) Raycast(origin, dir ai.Vec3, maxDistance float64, mask ai.Layer) (ai.Hit, bool) {
	if !mask.Has(ai.LayerObstacle) {
		return ai.Hit{}, false
	}
	d := dir.Flat().Normalize()
	if d.IsZero() {
		return ai.Hit{}, false
	}
	for _, p := range w.pillars {
		to := p.c.Sub(origin).Flat()
		along := to.Dot(d)
		if along < 0 || along > maxDistance {
			continue
		}
		if to.Sub(d.Scale(along)).Len() <= p.r {
			return ai.Hit{Point: origin.Add(d.Scale(along)), Distance: along}, true
		}
	}
	return ai.Hit{}, false
}

func (w *fakeWorld) place(id string, p ai.Vec3) {
	for i := range w.targets {
		if w.targets[i].ID == id {
			w.targets[i].Position = p
			return
		}
	}
	w.targets = append(w.targets, ai.Entity{ID: id, Position: p, Layer: ai.LayerPlayer})
}

type hit struct {
	target string
	amount float64
}

type recorder struct {
	hits     []hit
	launches int
}

func (r *recorder) ApplyDamage(targetID string, amount float64, _ ai.Vec3) {
	r.hits = append(r.hits, hit{targetID, amount})
}

func (r *recorder) Launch(string, ai.Vec3, ai.Vec3, float64) { r.launches++ }

type fixture struct {
	m     *Machine
	agent *ai.Agent
	world *fakeWorld
	sink  *recorder
	cfg   Settings
}

func newFixture(t *testing.T, variant *Variant, cfg Settings, logger *zap.Logger) *fixture {
	t.Helper()
	f := &fixture{
		agent: ai.NewAgent("e1", 1, ai.Vec3{}, 4, 10),
		world: &fakeWorld{},
		sink:  &recorder{},
		cfg:   cfg,
	}
	f.m = NewMachine(Deps{
		Agent:       f.agent,
		Settings:    &f.cfg,
		Variant:     variant,
		World:       f.world,
		Damage:      f.sink,
		Projectiles: f.sink,
		Rng:         rand.New(rand.NewSource(42)),
		Logger:      logger,
	})
	return f
}

func (f *fixture) run(seconds float64) {
	for elapsed := 0.0; elapsed < seconds-1e-9; elapsed += 0.1 {
		f.m.Tick(0.1)
	}
}

func TestTable_Closure(t *testing.T) {
	for _, name := range VariantNames() {
		v, ok := VariantByName(name)
		require.True(t, ok)
		tbl := BaseTable().Merge(v.Transitions)
		for _, s := range States() {
			for e := Event(0); e < eventCount; e++ {
				if next, ok := tbl.Next(s, e); ok {
					assert.True(t, next.Valid(), "%s: %s --%s--> %d", name, s, e, next)
				}
			}
		}
	}
}

func TestTable_MergeDoesNotTouchBase(t *testing.T) {
	base := BaseTable()
	overlay := Table{}
	overlay.Set(StateIdle, EventTargetSpotted, StateAttack)
	merged := base.Merge(overlay)

	next, _ := merged.Next(StateIdle, EventTargetSpotted)
	assert.Equal(t, StateAttack, next)
	next, _ = base.Next(StateIdle, EventTargetSpotted)
	assert.Equal(t, StateChase, next)
}

func TestMachine_StartsIdleAndPatrolsAfterWait(t *testing.T) {
	cfg := DefaultSettings()
	cfg.PatrolWaitTime = 0
	f := newFixture(t, nil, cfg, nil)
	assert.Equal(t, StateIdle, f.m.State())
	assert.Equal(t, "melee", f.m.Variant())

	f.run(f.cfg.IdleMaxWait + 0.1)
	require.Equal(t, StatePatrol, f.m.State())

	start := f.agent.Position()
	f.run(1)
	assert.NotEqual(t, start, f.agent.Position(), "walks to a patrol point")
	assert.LessOrEqual(t, ai.FlatDistance(ai.Vec3{}, f.agent.Position()), f.cfg.PatrolRadius+1e-6)
}

func TestMachine_SpotsTargetInView(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 6})
	f.m.Tick(0.1)
	assert.Equal(t, StateChase, f.m.State())
	tgt, visible := f.m.Target()
	assert.True(t, visible)
	assert.Equal(t, "p1", tgt.ID)
}

func TestMachine_IgnoresTargetBehind(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: -6})
	f.run(1)
	assert.Equal(t, StateIdle, f.m.State())
	assert.False(t, f.m.HasTarget())
}

func TestMachine_LineOfSightBlocked(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 6})
	f.world.pillars = []pillar{{c: ai.Vec3{Z: 3}, r: 0.5}}
	f.run(1)
	assert.Equal(t, StateIdle, f.m.State())
}

func TestMachine_FirstVisibleCandidateWins(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("far", ai.Vec3{Z: 9})
	f.world.place("near", ai.Vec3{Z: 2})
	f.m.Tick(0.1)
	tgt, _ := f.m.Target()
	assert.Equal(t, "far", tgt.ID, "query order, not distance")
}

func TestMachine_ChaseAttackOncePerEntry(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 1.5})

	f.m.Tick(0.1) // spotted
	require.Equal(t, StateChase, f.m.State())
	f.m.Tick(0.1) // in range, cooldown clear
	require.Equal(t, StateAttack, f.m.State())
	f.m.Tick(0.1) // strike
	assert.Equal(t, StateChase, f.m.State())
	require.Len(t, f.sink.hits, 1)
	assert.Equal(t, hit{"p1", f.cfg.AttackDamage}, f.sink.hits[0])
	assert.InDelta(t, f.cfg.AttackCooldown, f.m.AttackCooldown(), 1e-9)

	f.run(f.cfg.AttackCooldown - 0.2)
	assert.Len(t, f.sink.hits, 1, "no hit while cooling down")
	assert.Equal(t, StateChase, f.m.State())

	f.run(0.5)
	assert.Len(t, f.sink.hits, 2)
}

func TestMachine_AttackAbortsWhenTargetLeaves(t *testing.T) {
	cfg := DefaultSettings()
	cfg.AttackWindup = 1
	f := newFixture(t, nil, cfg, nil)
	f.world.place("p1", ai.Vec3{Z: 1.5})
	f.m.Tick(0.1)
	f.m.Tick(0.1)
	require.Equal(t, StateAttack, f.m.State())

	f.world.place("p1", ai.Vec3{Z: 6})
	f.m.Tick(0.1)
	assert.Equal(t, StateChase, f.m.State())
	assert.Empty(t, f.sink.hits)
}

func TestMachine_ChaseGraceBeforePatrol(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 8})
	f.m.Tick(0.1)
	require.Equal(t, StateChase, f.m.State())

	f.world.targets = nil
	f.run(f.cfg.LoseTargetGrace - 0.2)
	assert.Equal(t, StateChase, f.m.State())
	assert.True(t, f.m.HasTarget())
	assert.Equal(t, ai.Vec3{Z: 8}, f.m.LastKnownPosition())

	f.run(0.3)
	assert.Equal(t, StatePatrol, f.m.State())
	assert.False(t, f.m.HasTarget())
}

func TestMachine_ChaseMovesTowardTarget(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 8})
	f.m.Tick(0.1)
	f.run(0.5)
	assert.InDelta(t, 0.4*5, f.agent.Position().Z, 1e-6)
}

func TestMachine_RetreatThenIdle(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 5})
	f.m.Tick(0.1)
	require.Equal(t, StateChase, f.m.State())

	f.m.Threaten()
	require.Equal(t, StateRetreat, f.m.State())
	f.world.targets = nil

	f.run(0.5)
	assert.Less(t, f.agent.Position().Z, 0.0, "moves away from the threat")
	f.run(1.5)
	assert.Equal(t, StateIdle, f.m.State())
}

func TestMachine_RetreatWithoutTargetGoesHome(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.agent.SetPosition(ai.Vec3{X: 3})
	f.world.place("p1", ai.Vec3{X: 3, Z: 5})
	f.m.Tick(0.1)
	require.Equal(t, StateChase, f.m.State())
	f.m.clearTarget()

	f.m.Threaten()
	require.Equal(t, StateRetreat, f.m.State())
	f.world.targets = nil
	f.run(1.5)
	assert.Equal(t, StateIdle, f.m.State(), "arrived at the spawn point")
	assert.InDelta(t, 0, ai.FlatDistance(ai.Vec3{}, f.agent.Position()), f.cfg.StoppingDistance+1e-6)
}

func TestMachine_AlertFromIdle(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.m.Alert(ai.Entity{ID: "p1", Position: ai.Vec3{X: 20}})
	assert.Equal(t, StateChase, f.m.State())
	assert.Equal(t, ai.Vec3{X: 20}, f.m.LastKnownPosition())

	f.m.Alert(ai.Entity{ID: "p2", Position: ai.Vec3{X: -20}})
	tgt, _ := f.m.Target()
	assert.Equal(t, "p1", tgt.ID, "already chasing")
}

func TestMachine_StunAndRecover(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.m.Stun(1)
	require.Equal(t, StateStunned, f.m.State())
	f.run(0.9)
	assert.Equal(t, StateStunned, f.m.State())
	f.run(0.2)
	assert.Equal(t, StateIdle, f.m.State())
}

func TestMachine_StunRefreshes(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.m.Stun(1)
	f.run(0.5)
	f.m.Stun(2)
	f.run(0.1)
	assert.Equal(t, StateStunned, f.m.State(), "a second stun keeps the enemy down")
	f.run(1.7)
	assert.Equal(t, StateStunned, f.m.State())
	f.run(0.3)
	assert.Equal(t, StateIdle, f.m.State())
}

func TestMachine_DeadIsFinal(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 5})
	f.m.Kill()
	assert.Equal(t, StateDead, f.m.State())
	assert.False(t, f.m.Fire(EventAlerted))
	f.m.Stun(1)
	f.run(1)
	assert.Equal(t, StateDead, f.m.State())
	assert.False(t, f.m.HasTarget())
}

func TestMachine_DisabledDoesNotTick(t *testing.T) {
	f := newFixture(t, nil, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 5})
	f.m.SetEnabled(false)
	f.run(1)
	assert.Equal(t, StateIdle, f.m.State())
	assert.Zero(t, f.m.StateTime())

	f.m.SetEnabled(true)
	f.m.Tick(0.1)
	assert.Equal(t, StateChase, f.m.State())
}

func TestMachine_UnregisteredStateIsLoggedAndIgnored(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	f := newFixture(t, nil, DefaultSettings(), zap.New(core))
	f.world.place("p1", ai.Vec3{Z: 8})
	f.m.Tick(0.1)
	require.Equal(t, StateChase, f.m.State())

	assert.False(t, f.m.Fire(EventSummon))
	assert.Equal(t, StateChase, f.m.State())
	require.Equal(t, 1, logs.FilterMessage("transition to unregistered state").Len())
	entry := logs.All()[0]
	assert.Equal(t, "summon", entry.ContextMap()["to"])
}

func TestMachine_HostSuppliedHandler(t *testing.T) {
	entered := 0
	v := Melee().With(StateSummon, HandlerFuncs{
		OnEnter: func(*Machine) { entered++ },
		OnTick:  func(m *Machine, _ float64) { m.Fire(EventAttackFinished) },
	})
	f := newFixture(t, v, DefaultSettings(), nil)
	f.world.place("p1", ai.Vec3{Z: 8})
	f.m.Tick(0.1)

	require.True(t, f.m.Fire(EventSummon))
	assert.Equal(t, StateSummon, f.m.State())
	assert.Equal(t, 1, entered)
	f.m.Tick(0.1)
	assert.Equal(t, StateChase, f.m.State())

	assert.NotContains(t, Melee().Handlers, StateSummon, "With copies")
}

func TestMachine_NilSettingsIsInert(t *testing.T) {
	m := NewMachine(Deps{Agent: ai.NewAgent("e1", 1, ai.Vec3{}, 1, 1)})
	m.Tick(1)
	assert.False(t, m.Fire(EventTargetSpotted))
	assert.Equal(t, StateIdle, m.State())

	none := NewMachine(Deps{})
	none.Tick(1)
	assert.Equal(t, "", none.ID())
	assert.Equal(t, ai.Vec3{}, none.Position())
}

func TestVariantByName(t *testing.T) {
	assert.Equal(t, []string{"brute", "melee", "ranged"}, VariantNames())
	v, ok := VariantByName("ranged")
	require.True(t, ok)
	assert.Equal(t, "ranged", v.Name)
	_, ok = VariantByName("dragon")
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "maintain_distance", StateMaintainDistance.String())
	assert.Equal(t, "unknown", State(-1).String())
	assert.Equal(t, "charge_ready", EventChargeReady.String())
	assert.Len(t, States(), int(stateCount))
}
