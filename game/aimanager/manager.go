package aimanager

import (
	"sort"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/enemy"
	"go.uber.org/zap"
)

// Agent is what the manager needs from a simulated enemy. The manager holds
// agents by reference but never owns their lifetime: hosts must Unregister
// on despawn.
type Agent interface {
	ID() string
	Position() ai.Vec3
	Faction() int
	State() enemy.State
	Enabled() bool
	SetEnabled(on bool)
	// Target returns the agent's target and whether it is currently visible.
	Target() (ai.Entity, bool)
	Alert(target ai.Entity)
}

// Settings configures the scheduler.
type Settings struct {
	ThrottleInterval     float64 `mapstructure:"throttle_interval"`
	MaxActive            int     `mapstructure:"max_active"`
	MaxDistance          float64 `mapstructure:"max_distance"`
	FullAIRadius         float64 `mapstructure:"full_ai_radius"`
	VisibilityMultiplier float64 `mapstructure:"visibility_multiplier"`
	GroupAwareness       bool    `mapstructure:"group_awareness"`
	AwarenessRadius      float64 `mapstructure:"awareness_radius"`
}

// DefaultSettings returns the stock scheduler configuration.
func DefaultSettings() Settings {
	return Settings{
		ThrottleInterval:     0.2,
		MaxActive:            10,
		MaxDistance:          60,
		FullAIRadius:         25,
		VisibilityMultiplier: 2,
		GroupAwareness:       true,
		AwarenessRadius:      12,
	}
}

// stateWeights rank combat states for scheduling.
var stateWeights = map[enemy.State]float64{
	enemy.StateAttack:           5,
	enemy.StateAreaAttack:       5,
	enemy.StateCharge:           5,
	enemy.StateChase:            4,
	enemy.StateSummon:           4,
	enemy.StateRetreat:          3,
	enemy.StateVulnerable:       3,
	enemy.StateMaintainDistance: 2.5,
	enemy.StatePatrol:           1.5,
	enemy.StateIdle:             1,
	enemy.StateStunned:          1,
	enemy.StateDead:             0,
}

// StateWeight returns the scheduling weight of s.
func StateWeight(s enemy.State) float64 {
	if w, ok := stateWeights[s]; ok {
		return w
	}
	return 1
}

// Priority computes (100 / (distance + 1)) * stateWeight * visibility.
func Priority(distance, stateWeight, visibility float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return (100 / (distance + 1)) * stateWeight * visibility
}

// PriorityEntry is one ranked agent from the last scheduling pass.
type PriorityEntry struct {
	Agent    Agent
	Priority float64
	Distance float64
	Visible  bool
	Enabled  bool
	Culled   bool // beyond MaxDistance
}

// Manager is the registry and priority scheduler of every active agent.
// Every ThrottleInterval it re-ranks agents by distance to the player, state
// and visibility and gives full simulation to the top MaxActive only.
// Not safe for concurrent use.
type Manager struct {
	cfg    *Settings
	player ai.TargetLocator
	logger *zap.Logger

	agents  []Agent
	index   map[string]struct{}
	entries []PriorityEntry
	accum   float64
	passes  int
}

// New creates a Manager. player locates the entity priorities are measured
// from.
func New(cfg *Settings, player ai.TargetLocator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		player: player,
		logger: logger,
		index:  make(map[string]struct{}),
	}
}

// Register adds a. Registering an agent twice is a no-op; it returns false
// in that case.
func (m *Manager) Register(a Agent) bool {
	if a == nil {
		return false
	}
	if _, ok := m.index[a.ID()]; ok {
		return false
	}
	m.index[a.ID()] = struct{}{}
	m.agents = append(m.agents, a)
	return true
}

// Unregister removes the agent with id. Unknown ids are a no-op; it returns
// false in that case.
func (m *Manager) Unregister(id string) bool {
	if _, ok := m.index[id]; !ok {
		return false
	}
	delete(m.index, id)
	for i, a := range m.agents {
		if a.ID() == id {
			m.agents = append(m.agents[:i], m.agents[i+1:]...)
			break
		}
	}
	for i, e := range m.entries {
		if e.Agent.ID() == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered agents.
func (m *Manager) Len() int { return len(m.agents) }

// Agents returns the registered agents in registration order.
func (m *Manager) Agents() []Agent {
	out := make([]Agent, len(m.agents))
	copy(out, m.agents)
	return out
}

// Passes returns how many scheduling passes have run.
func (m *Manager) Passes() int { return m.passes }

// Tick accumulates dt and runs a scheduling pass once ThrottleInterval has
// elapsed. It reports whether a pass ran.
func (m *Manager) Tick(dt float64) bool {
	if m.cfg == nil {
		return false
	}
	m.accum += dt
	if m.accum < m.cfg.ThrottleInterval {
		return false
	}
	m.accum = 0
	m.Reprioritize()
	return true
}

// Reprioritize runs one scheduling pass immediately. Without a player the
// enable flags are left untouched.
func (m *Manager) Reprioritize() {
	if m.cfg == nil || m.player == nil {
		return
	}
	player, ok := m.player.Target()
	if !ok {
		m.entries = m.entries[:0]
		return
	}
	m.passes++

	ranked := make([]PriorityEntry, 0, len(m.agents))
	var culled []PriorityEntry
	for _, a := range m.agents {
		d := ai.FlatDistance(a.Position(), player.Position)
		e := PriorityEntry{Agent: a, Distance: d}
		if m.cfg.MaxDistance > 0 && d > m.cfg.MaxDistance {
			e.Culled = true
			a.SetEnabled(false)
			culled = append(culled, e)
			continue
		}
		vis := 1.0
		if d <= m.cfg.FullAIRadius {
			e.Visible = true
			vis = m.cfg.VisibilityMultiplier
		}
		e.Priority = Priority(d, StateWeight(a.State()), vis)
		ranked = append(ranked, e)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})
	for i := range ranked {
		on := i < m.cfg.MaxActive
		ranked[i].Enabled = on
		ranked[i].Agent.SetEnabled(on)
	}

	if m.cfg.GroupAwareness {
		for _, e := range ranked {
			if e.Enabled && e.Visible {
				m.alertNearby(e.Agent)
			}
		}
	}

	m.entries = append(ranked, culled...)
	m.logger.Debug("ai schedule pass",
		zap.Int("agents", len(m.agents)),
		zap.Int("enabled", m.EnabledCount()),
		zap.Int("culled", len(culled)))
}

// alertNearby makes idle and patrolling faction mates of src chase src's
// target. The condition reads
//
//	d <= AwarenessRadius && state == Idle || state == Patrol
//
// with Go's precedence, so patrolling agents are alerted at any distance.
func (m *Manager) alertNearby(src Agent) {
	target, visible := src.Target()
	if !visible {
		return
	}
	for _, other := range m.agents {
		if other.ID() == src.ID() || other.Faction() != src.Faction() {
			continue
		}
		d := ai.FlatDistance(src.Position(), other.Position())
		st := other.State()
		if d <= m.cfg.AwarenessRadius && st == enemy.StateIdle || st == enemy.StatePatrol {
			other.Alert(target)
		}
	}
}

// EnabledCount returns how many agents the last pass enabled.
func (m *Manager) EnabledCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Enabled {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the last pass's ranking, highest priority
// first, culled agents last.
func (m *Manager) Snapshot() []PriorityEntry {
	out := make([]PriorityEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
