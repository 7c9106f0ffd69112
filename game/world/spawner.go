package world

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/enemy"
	"github.com/kasuganosora/enemyai/model"
	"go.uber.org/zap"
)

// ErrUnknownArchetype is returned when a spawn point names no archetype.
var ErrUnknownArchetype = errors.New("world: unknown archetype")

// ErrUnknownVariant is returned when an archetype names no variant.
var ErrUnknownVariant = errors.New("world: unknown variant")

// Journal records agent lifecycle events.
type Journal interface {
	Log(entry audit.Entry)
}

type group struct {
	point  model.SpawnPoint
	alive  map[string]struct{}
	deaths []float64 // room time of each death awaiting respawn
}

// Spawner keeps the spawn groups of a Room filled.
type Spawner struct {
	room       *Room
	archetypes map[string]Archetype
	groups     []*group
	byAgent    map[string]*group
	rng        *rand.Rand
	journal    Journal
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewSpawner creates a Spawner for the room's spawn points. A nil rng is
// replaced by a time-seeded one.
func NewSpawner(room *Room, archetypes map[string]Archetype, points []model.SpawnPoint,
	rng *rand.Rand, logger *zap.Logger) *Spawner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sp := &Spawner{
		room:       room,
		archetypes: archetypes,
		byAgent:    make(map[string]*group),
		rng:        rng,
		logger:     logger,
	}
	for _, p := range points {
		if p.Room != "" && p.Room != room.ID {
			continue
		}
		sp.groups = append(sp.groups, &group{point: p, alive: make(map[string]struct{})})
	}
	room.OnDespawn(sp.onDespawn)
	return sp
}

// SetJournal sets where spawn and despawn events are recorded.
func (sp *Spawner) SetJournal(j Journal) {
	sp.mu.Lock()
	sp.journal = j
	sp.mu.Unlock()
}

// SpawnAll fills every group immediately (called on room creation).
func (sp *Spawner) SpawnAll() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	var errs []error
	for _, g := range sp.groups {
		if err := sp.fill(g, g.point.MaxCount-len(g.alive)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckRespawns replaces dead agents whose respawn delay has elapsed.
// Should be called periodically from a scheduler.
func (sp *Spawner) CheckRespawns() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	now := sp.room.Elapsed()
	for _, g := range sp.groups {
		ready := 0
		pending := g.deaths[:0]
		for _, t := range g.deaths {
			if now-t >= g.point.RespawnSeconds {
				ready++
			} else {
				pending = append(pending, t)
			}
		}
		g.deaths = pending
		want := g.point.MaxCount - len(g.alive) - len(g.deaths)
		if want > ready {
			want = ready
		}
		if err := sp.fill(g, want); err != nil {
			sp.logger.Warn("respawn failed", zap.Int64("spawn_id", g.point.ID), zap.Error(err))
		}
	}
}

// Alive returns the number of living agents across all groups.
func (sp *Spawner) Alive() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return len(sp.byAgent)
}

// Pending returns the number of deaths waiting for respawn.
func (sp *Spawner) Pending() int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	n := 0
	for _, g := range sp.groups {
		n += len(g.deaths)
	}
	return n
}

func (sp *Spawner) fill(g *group, n int) error {
	for i := 0; i < n; i++ {
		a, err := sp.build(g.point.Archetype, sp.pointIn(g.point))
		if err != nil {
			return fmt.Errorf("spawn point %d: %w", g.point.ID, err)
		}
		// Once spawned the actor belongs to the room loop.
		entry := sp.entry(a, "spawn")
		if !sp.room.Spawn(a) {
			continue
		}
		g.alive[a.ID()] = struct{}{}
		sp.byAgent[a.ID()] = g
		sp.log(entry)
		sp.logger.Debug("agent spawned",
			zap.String("agent_id", a.ID()),
			zap.String("archetype", g.point.Archetype),
			zap.Int64("spawn_id", g.point.ID))
	}
	return nil
}

func (sp *Spawner) pointIn(p model.SpawnPoint) ai.Vec3 {
	c := ai.Vec3{X: p.X, Z: p.Z}
	if p.Radius <= 0 {
		return c
	}
	angle := sp.rng.Float64() * 2 * math.Pi
	r := p.Radius * math.Sqrt(sp.rng.Float64())
	pos := c.Add(ai.Vec3{X: math.Cos(angle) * r, Z: math.Sin(angle) * r})
	if g := sp.room.Grid(); g != nil {
		if valid, ok := g.SampleValidPosition(pos, p.Radius); ok {
			return valid
		}
		return c
	}
	return pos
}

// Build creates an actor of the named archetype at pos without placing it
// in the room.
func (sp *Spawner) Build(name string, pos ai.Vec3) (Actor, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.build(name, pos)
}

func (sp *Spawner) build(name string, pos ai.Vec3) (Actor, error) {
	arch, ok := sp.archetypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, name)
	}
	id := uuid.NewString()
	agent := ai.NewAgent(id, arch.Faction, pos, arch.Speed, arch.TurnSpeed)
	rng := rand.New(rand.NewSource(sp.rng.Int63()))
	log := sp.logger.With(zap.String("agent_id", id))
	w := sp.room.World()

	switch arch.Kind {
	case KindFSM, "":
		variantName := arch.Variant
		if variantName == "" {
			variantName = "melee"
		}
		variant, ok := enemy.VariantByName(variantName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, arch.Variant)
		}
		settings := arch.Enemy
		deps := enemy.Deps{
			Agent:       agent,
			Settings:    &settings,
			Variant:     variant,
			World:       w,
			Damage:      w,
			Projectiles: w,
			Rng:         rng,
			Logger:      log,
		}
		if g := sp.room.Grid(); g != nil {
			deps.Nav = g
		}
		if arch.Steering {
			st := arch.Movement.Steering
			deps.Steering = &st
		}
		return machineActor{enemy.NewMachine(deps)}, nil
	case KindSteering:
		move, trans := arch.Movement, arch.Transition
		ctl := ai.NewController(agent, &move, &trans, w, w, rng, log)
		return newSteeringActor(ctl, w), nil
	default:
		return nil, fmt.Errorf("archetype %q: unknown kind %q", name, arch.Kind)
	}
}

func (sp *Spawner) onDespawn(a Actor) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	g, ok := sp.byAgent[a.ID()]
	if !ok {
		return
	}
	delete(sp.byAgent, a.ID())
	delete(g.alive, a.ID())
	g.deaths = append(g.deaths, sp.room.Elapsed())
	sp.log(sp.entry(a, "despawn"))
}

func (sp *Spawner) entry(a Actor, action string) audit.Entry {
	return audit.Entry{
		Room:     sp.room.ID,
		AgentID:  a.ID(),
		Kind:     a.Kind(),
		Action:   action,
		State:    a.State().String(),
		Position: a.Position(),
	}
}

func (sp *Spawner) log(e audit.Entry) {
	if sp.journal != nil {
		sp.journal.Log(e)
	}
}
