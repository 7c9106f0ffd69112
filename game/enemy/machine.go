package enemy

import (
	"math"
	"math/rand"
	"time"

	"github.com/kasuganosora/enemyai/game/ai"
	"go.uber.org/zap"
)

// Handler implements the behaviour of one combat state.
type Handler interface {
	Enter(m *Machine)
	Tick(m *Machine, dt float64)
	Exit(m *Machine)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	OnEnter func(m *Machine)
	OnTick  func(m *Machine, dt float64)
	OnExit  func(m *Machine)
}

func (h HandlerFuncs) Enter(m *Machine) {
	if h.OnEnter != nil {
		h.OnEnter(m)
	}
}

func (h HandlerFuncs) Tick(m *Machine, dt float64) {
	if h.OnTick != nil {
		h.OnTick(m, dt)
	}
}

func (h HandlerFuncs) Exit(m *Machine) {
	if h.OnExit != nil {
		h.OnExit(m)
	}
}

// Deps are the collaborators of a Machine. Only Agent and Settings are
// required; every other field degrades gracefully when nil.
type Deps struct {
	Agent       *ai.Agent
	Settings    *Settings
	Variant     *Variant
	World       ai.SpatialQuery
	Nav         ai.Navigator
	Damage      DamageSink
	Projectiles ProjectileLauncher
	Steering    *ai.SteeringSettings // enables obstacle-aware movement
	Rng         *rand.Rand
	Logger      *zap.Logger
}

// Machine is the combat state machine of one enemy. The state is only ever
// changed by the machine itself through its transition table. Not safe for
// concurrent use.
type Machine struct {
	agent       *ai.Agent
	cfg         *Settings
	variant     string
	world       ai.SpatialQuery
	nav         ai.Navigator
	damage      DamageSink
	projectiles ProjectileLauncher
	eval        *ai.Evaluator
	rng         *rand.Rand
	logger      *zap.Logger

	handlers [stateCount]Handler
	table    Table
	redirect map[State]State

	state     State
	stateTime float64
	enabled   bool

	target        ai.Entity
	hasTarget     bool
	targetVisible bool
	lastKnown     ai.Vec3
	initialPos    ai.Vec3

	attackCooldown float64
	chargeCooldown float64

	// Per-state scratch, reset by the handler that owns it.
	waitTimer       float64
	lostTimer       float64
	repositionTimer float64
	waiting         bool
	destination     ai.Vec3
	hasDestination  bool
	path            []ai.Vec3
	hasAttacked     bool
	chargeDir       ai.Vec3
	chargeHit       bool
	stunDuration    float64
	pendingStun     float64
}

// NewMachine builds a machine from the base handlers and table with the
// variant's overrides applied, and enters Idle. A nil Variant means Melee.
func NewMachine(d Deps) *Machine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := d.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	v := d.Variant
	if v == nil {
		v = Melee()
	}

	m := &Machine{
		agent:       d.Agent,
		cfg:         d.Settings,
		variant:     v.Name,
		world:       d.World,
		nav:         d.Nav,
		damage:      d.Damage,
		projectiles: d.Projectiles,
		rng:         rng,
		logger:      logger,
		handlers:    baseHandlers(),
		table:       BaseTable().Merge(v.Transitions),
		redirect:    make(map[State]State, len(v.Redirect)),
		state:       StateIdle,
		enabled:     true,
	}
	if d.Steering != nil {
		m.eval = ai.NewEvaluator(d.World, d.Steering)
	}
	for s, h := range v.Handlers {
		if s.Valid() {
			m.handlers[s] = h
		}
	}
	for from, to := range v.Redirect {
		m.redirect[from] = to
	}
	if m.agent != nil {
		m.initialPos = m.agent.Position()
	}
	if m.ready() {
		if h := m.handlers[m.state]; h != nil {
			h.Enter(m)
		}
	}
	return m
}

// ID returns the agent ID.
func (m *Machine) ID() string {
	if m.agent == nil {
		return ""
	}
	return m.agent.ID
}

// Agent returns the controlled agent.
func (m *Machine) Agent() *ai.Agent { return m.agent }

// Variant returns the variant name.
func (m *Machine) Variant() string { return m.variant }

// State returns the current combat state.
func (m *Machine) State() State { return m.state }

// StateTime returns the seconds spent in the current state.
func (m *Machine) StateTime() float64 { return m.stateTime }

// Position returns the agent position.
func (m *Machine) Position() ai.Vec3 {
	if m.agent == nil {
		return ai.Vec3{}
	}
	return m.agent.Position()
}

// Faction returns the agent faction.
func (m *Machine) Faction() int {
	if m.agent == nil {
		return 0
	}
	return m.agent.Faction
}

// Enabled reports whether Tick runs full simulation.
func (m *Machine) Enabled() bool { return m.enabled }

// SetEnabled turns full simulation on or off. Disabling is immediate; the
// state is kept and resumes when re-enabled.
func (m *Machine) SetEnabled(on bool) { m.enabled = on }

// Target returns the tracked target and whether it was visible on the last
// perception check.
func (m *Machine) Target() (ai.Entity, bool) {
	if !m.hasTarget {
		return ai.Entity{}, false
	}
	return m.target, m.targetVisible
}

// HasTarget reports whether a target is being tracked, visible or not.
func (m *Machine) HasTarget() bool { return m.hasTarget }

// LastKnownPosition returns where the target was last seen.
func (m *Machine) LastKnownPosition() ai.Vec3 { return m.lastKnown }

// AttackCooldown returns the remaining attack cooldown.
func (m *Machine) AttackCooldown() float64 { return m.attackCooldown }

// Vulnerable reports whether the enemy is in its post-charge window.
func (m *Machine) Vulnerable() bool { return m.state == StateVulnerable }

// Table returns the resolved transition table.
func (m *Machine) Table() Table { return m.table }

// Tick advances the machine by dt seconds.
func (m *Machine) Tick(dt float64) {
	if !m.enabled || !m.ready() {
		return
	}
	m.attackCooldown = math.Max(0, m.attackCooldown-dt)
	m.chargeCooldown = math.Max(0, m.chargeCooldown-dt)
	m.stateTime += dt
	if h := m.handlers[m.state]; h != nil {
		h.Tick(m, dt)
	}
}

// Fire feeds an event into the transition table. It returns true when the
// state changed. Events with no entry for the current state are ignored; an
// entry pointing at a state with no handler is logged and ignored.
func (m *Machine) Fire(e Event) bool {
	if !m.ready() {
		return false
	}
	next, ok := m.table.Next(m.state, e)
	if !ok {
		return false
	}
	if r, ok := m.redirect[next]; ok {
		next = r
	}
	if !next.Valid() || m.handlers[next] == nil {
		m.logger.Error("transition to unregistered state",
			zap.String("enemy_id", m.ID()),
			zap.String("variant", m.variant),
			zap.Stringer("from", m.state),
			zap.Stringer("event", e),
			zap.Stringer("to", next))
		return false
	}
	prev := m.state
	if h := m.handlers[prev]; h != nil {
		h.Exit(m)
	}
	m.state = next
	m.stateTime = 0
	m.handlers[next].Enter(m)
	m.logger.Debug("enemy state changed",
		zap.String("enemy_id", m.ID()),
		zap.Stringer("from", prev),
		zap.Stringer("event", e),
		zap.Stringer("to", next))
	return true
}

// Alert makes an idle or patrolling enemy chase target.
func (m *Machine) Alert(target ai.Entity) {
	if m.state != StateIdle && m.state != StatePatrol {
		return
	}
	m.acquire(target)
	m.Fire(EventAlerted)
}

// Stun holds the enemy in Stunned for d seconds. Stunning a stunned enemy
// restarts the stun with the new duration.
func (m *Machine) Stun(d float64) {
	m.pendingStun = d
	m.Fire(EventStunned)
	m.pendingStun = 0
}

// Threaten makes the enemy retreat from its current target.
func (m *Machine) Threaten() { m.Fire(EventThreatened) }

// Kill moves the enemy to Dead.
func (m *Machine) Kill() { m.Fire(EventDied) }

func (m *Machine) ready() bool { return m.agent != nil && m.cfg != nil }

// ---- perception ----

func (m *Machine) eye() ai.Vec3 {
	return m.agent.Position().Add(ai.Vec3{Y: m.cfg.EyeHeight})
}

// scan returns the first candidate in detection range that is inside the
// view cone and in line of sight. Candidates are taken in the order the
// spatial query returns them, not by distance.
func (m *Machine) scan() (ai.Entity, bool) {
	if m.world == nil {
		return ai.Entity{}, false
	}
	for _, c := range m.world.OverlapSphere(m.agent.Position(), m.cfg.DetectionRadius, m.cfg.TargetMask) {
		if m.canSee(c) {
			return c, true
		}
	}
	return ai.Entity{}, false
}

// canSee checks range, view cone and line of sight to e.
func (m *Machine) canSee(e ai.Entity) bool {
	to := e.Position.Sub(m.agent.Position()).Flat()
	dist := to.Len()
	if dist > m.cfg.DetectionRadius {
		return false
	}
	if dist > 1e-6 && ai.Angle(m.agent.Forward(), to) > m.cfg.FOVAngle/2 {
		return false
	}
	return m.lineOfSight(e.Position)
}

func (m *Machine) lineOfSight(p ai.Vec3) bool {
	if m.world == nil {
		return false
	}
	eye := m.eye()
	ray := p.Add(ai.Vec3{Y: m.cfg.EyeHeight}).Sub(eye)
	dist := ray.Len()
	if dist < 1e-6 {
		return true
	}
	_, hit := m.world.Raycast(eye, ray.Scale(1/dist), dist, m.cfg.ObstacleMask)
	return !hit
}

// locate finds the tracked target within radius, visible or not.
func (m *Machine) locate(radius float64) (ai.Entity, bool) {
	if !m.hasTarget || m.world == nil {
		return ai.Entity{}, false
	}
	for _, c := range m.world.OverlapSphere(m.agent.Position(), radius, m.cfg.TargetMask) {
		if c.ID == m.target.ID {
			return c, true
		}
	}
	return ai.Entity{}, false
}

// trackTarget refreshes visibility of the tracked target only. It does not
// look for other targets. It returns the target and true when it is visible.
func (m *Machine) trackTarget(dt float64) (ai.Entity, bool) {
	if t, ok := m.locate(m.cfg.DetectionRadius); ok && m.canSee(t) {
		m.acquire(t)
		m.lostTimer = 0
		return t, true
	}
	m.targetVisible = false
	m.lostTimer += dt
	return ai.Entity{}, false
}

func (m *Machine) acquire(t ai.Entity) {
	m.target = t
	m.hasTarget = true
	m.targetVisible = true
	m.lastKnown = t.Position
}

func (m *Machine) clearTarget() {
	m.target = ai.Entity{}
	m.hasTarget = false
	m.targetVisible = false
}

// ---- movement ----

// moveToward walks toward dest at speed and reports arrival within stop.
func (m *Machine) moveToward(dest ai.Vec3, speed, stop, dt float64) bool {
	pos := m.agent.Position()
	to := dest.Sub(pos).Flat()
	dist := to.Len()
	if dist <= stop || dist < 1e-6 {
		return true
	}
	dir := to.Scale(1 / dist)
	if m.eval != nil {
		if steered := m.eval.Evaluate(m.agent.Entity(), dir, dist, m.cfg.SteeringBlend); !steered.IsZero() {
			dir = steered
		} else {
			return false
		}
	}
	step := math.Min(speed*dt, dist-stop)
	if step <= 0 {
		return true
	}
	m.agent.SetPosition(pos.Add(dir.Scale(step)))
	m.agent.SetForward(dir)
	return false
}

// followPath walks the cached path, then the destination itself.
func (m *Machine) followPath(speed, dt float64) bool {
	for len(m.path) > 0 {
		if !m.moveToward(m.path[0], speed, m.cfg.StoppingDistance, dt) {
			return false
		}
		m.path = m.path[1:]
	}
	return m.moveToward(m.destination, speed, m.cfg.StoppingDistance, dt)
}

// setDestination snaps p onto the navigation surface and plans a path when
// the navigator can. It reports false when no valid position was found.
func (m *Machine) setDestination(p ai.Vec3, radius float64) bool {
	m.path = nil
	if m.nav != nil {
		valid, ok := m.nav.SampleValidPosition(p, radius)
		if !ok {
			m.hasDestination = false
			return false
		}
		p = valid
		if pather, ok := m.nav.(ai.Pather); ok {
			m.path = pather.FindPath(m.agent.Position(), p)
		}
	}
	m.destination = p
	m.hasDestination = true
	return true
}

func (m *Machine) face(p ai.Vec3) {
	m.agent.SetForward(p.Sub(m.agent.Position()))
}

func (m *Machine) randRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + m.rng.Float64()*(hi-lo)
}

func (m *Machine) randomPointAround(center ai.Vec3, radius float64) ai.Vec3 {
	angle := m.rng.Float64() * 2 * math.Pi
	r := radius * math.Sqrt(m.rng.Float64())
	return center.Add(ai.Vec3{X: math.Cos(angle) * r, Z: math.Sin(angle) * r})
}
