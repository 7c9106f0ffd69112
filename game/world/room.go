package world

import (
	"errors"
	"sync"
	"time"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/aimanager"
	"github.com/kasuganosora/enemyai/game/nav"
	"go.uber.org/zap"
)

// DefaultTickInterval is the room loop period (20 TPS).
const DefaultTickInterval = 50 * time.Millisecond

// ErrUnknownAgent is returned for operations on an agent not in the room.
var ErrUnknownAgent = errors.New("world: unknown agent")

// AgentView is the client-visible state of one actor.
type AgentView struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Variant   string  `json:"variant,omitempty"`
	State     string  `json:"state"`
	Mode      string  `json:"mode,omitempty"`
	Position  ai.Vec3 `json:"position"`
	Forward   ai.Vec3 `json:"forward"`
	Enabled   bool    `json:"enabled"`
	HasTarget bool    `json:"has_target"`
}

// PriorityView is one row of the last scheduling pass.
type PriorityView struct {
	ID       string  `json:"id"`
	Priority float64 `json:"priority"`
	Distance float64 `json:"distance"`
	Visible  bool    `json:"visible"`
	Enabled  bool    `json:"enabled"`
	Culled   bool    `json:"culled"`
}

// RoomOptions configures a Room.
type RoomOptions struct {
	TickInterval time.Duration
	CellSize     float64
	Grid         *nav.Grid // copied per room
	Manager      aimanager.Settings
}

// Room is one simulated arena with its own loop: a spatial world, an
// optional navigation grid, the AI manager and the actors it schedules.
type Room struct {
	ID string

	world    *World
	grid     *nav.Grid
	manager  *aimanager.Manager
	actors   map[string]Actor
	order    []string
	interval time.Duration
	elapsed  float64

	onDespawn []func(Actor)

	mu     sync.RWMutex
	stopCh chan struct{}
	logger *zap.Logger
}

// NewRoom creates a Room but does not start its loop.
func NewRoom(id string, opts RoomOptions, logger *zap.Logger) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	logger = logger.With(zap.String("room_id", id))
	w := NewWorld(opts.CellSize, logger)
	mgr := opts.Manager
	return &Room{
		ID:       id,
		world:    w,
		grid:     opts.Grid.Clone(),
		manager:  aimanager.New(&mgr, w, logger),
		actors:   make(map[string]Actor),
		interval: opts.TickInterval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Run starts the loop. Call in a goroutine.
func (r *Room) Run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	dt := r.interval.Seconds()
	for {
		select {
		case <-ticker.C:
			r.Tick(dt)
		case <-r.stopCh:
			return
		}
	}
}

// Stop signals the loop to exit. Safe to call more than once.
func (r *Room) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// StopChan returns a channel that is closed when the room is stopped.
func (r *Room) StopChan() <-chan struct{} {
	return r.stopCh
}

// Tick advances the room by dt seconds: the manager re-ranks, then every
// enabled actor runs its AI. Dead actors are despawned after the pass.
func (r *Room) Tick(dt float64) {
	r.mu.Lock()
	r.elapsed += dt
	r.manager.Tick(dt)
	var dead []Actor
	for _, id := range r.order {
		a := r.actors[id]
		if a.Enabled() {
			a.Tick(dt)
		}
		r.world.Upsert(a.Entity())
		if a.Dead() {
			dead = append(dead, a)
		}
	}
	for _, a := range dead {
		r.remove(a.ID())
	}
	hooks := r.onDespawn
	r.mu.Unlock()

	for _, a := range dead {
		r.logger.Info("agent despawned", zap.String("agent_id", a.ID()))
		for _, fn := range hooks {
			fn(a)
		}
	}
}

// Elapsed returns the simulated time in seconds.
func (r *Room) Elapsed() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.elapsed
}

// OnDespawn registers fn to run after a dead actor leaves the room. Hooks run
// outside the room lock.
func (r *Room) OnDespawn(fn func(Actor)) {
	r.mu.Lock()
	r.onDespawn = append(r.onDespawn, fn)
	r.mu.Unlock()
}

// Spawn places an actor in the room. It returns false if the ID is taken.
func (r *Room) Spawn(a Actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a == nil {
		return false
	}
	if _, ok := r.actors[a.ID()]; ok {
		return false
	}
	r.actors[a.ID()] = a
	r.order = append(r.order, a.ID())
	r.world.Upsert(a.Entity())
	r.manager.Register(a)
	return true
}

// Despawn takes an actor out of the room.
func (r *Room) Despawn(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(id)
}

func (r *Room) remove(id string) bool {
	if _, ok := r.actors[id]; !ok {
		return false
	}
	delete(r.actors, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.world.Remove(id)
	r.manager.Unregister(id)
	return true
}

// Actor returns the actor with id.
func (r *Room) Actor(id string) (Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	return a, ok
}

// Len returns the number of actors.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// Kill marks an actor dead; it is despawned on the next tick.
func (r *Room) Kill(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[id]
	if !ok {
		return ErrUnknownAgent
	}
	a.Kill()
	return nil
}

// Flee forces an actor to run from the player.
func (r *Room) Flee(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[id]
	if !ok {
		return ErrUnknownAgent
	}
	a.Flee()
	return nil
}

// SetPlayer places the player in the room with full health.
func (r *Room) SetPlayer(id string, pos ai.Vec3, hp float64) {
	r.mu.Lock()
	r.world.SetPlayer(id, pos, hp)
	r.mu.Unlock()
}

// SetPlayerPosition moves the player.
func (r *Room) SetPlayerPosition(pos ai.Vec3) {
	r.mu.Lock()
	r.world.MovePlayer(pos)
	r.mu.Unlock()
}

// Player returns the player entity and its health.
func (r *Room) Player() (ai.Entity, float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.world.Player()
	return p, r.world.PlayerHP(), ok
}

// AddObstacle adds a static box to the world and blocks the matching grid
// cells.
func (r *Room) AddObstacle(b Box) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.AddBox(b)
	if r.grid != nil {
		r.grid.BlockBox(b.Min, b.Max)
	}
}

// World returns the room's spatial world. Callers must not use it while the
// loop is running.
func (r *Room) World() *World { return r.world }

// Grid returns the navigation grid, or nil.
func (r *Room) Grid() *nav.Grid { return r.grid }

// Snapshot returns the view of every actor in spawn order.
func (r *Room) Snapshot() []AgentView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentView, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, viewOf(r.actors[id]))
	}
	return out
}

// View returns the view of one actor.
func (r *Room) View(id string) (AgentView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	if !ok {
		return AgentView{}, false
	}
	return viewOf(a), true
}

// Priorities returns the result of the last scheduling pass.
func (r *Room) Priorities() []PriorityView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.manager.Snapshot()
	out := make([]PriorityView, len(entries))
	for i, e := range entries {
		out[i] = PriorityView{
			ID:       e.Agent.ID(),
			Priority: e.Priority,
			Distance: e.Distance,
			Visible:  e.Visible,
			Enabled:  e.Enabled,
			Culled:   e.Culled,
		}
	}
	return out
}

// EnabledCount returns how many actors the manager has enabled.
func (r *Room) EnabledCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manager.EnabledCount()
}

func viewOf(a Actor) AgentView {
	e := a.Entity()
	_, seen := a.Target()
	v := AgentView{
		ID:        a.ID(),
		Kind:      a.Kind(),
		State:     a.State().String(),
		Position:  e.Position,
		Forward:   e.Forward,
		Enabled:   a.Enabled(),
		HasTarget: seen,
	}
	switch t := a.(type) {
	case machineActor:
		v.Variant = t.Variant()
	case *steeringActor:
		v.Mode = t.Mode().String()
	}
	return v
}
