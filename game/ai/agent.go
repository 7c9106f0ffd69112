package ai

// Agent is a movable AI-controlled body. It implements Transform.
type Agent struct {
	ID        string
	Faction   int
	Speed     float64 // units per second
	TurnSpeed float64 // slerp rate per second used when smoothing direction

	pos     Vec3
	forward Vec3
	mode    ModeKind
}

// NewAgent creates an agent at pos facing +Z.
func NewAgent(id string, faction int, pos Vec3, speed, turnSpeed float64) *Agent {
	return &Agent{
		ID:        id,
		Faction:   faction,
		Speed:     speed,
		TurnSpeed: turnSpeed,
		pos:       pos,
		forward:   WorldForward,
		mode:      ModeIdle,
	}
}

func (a *Agent) Position() Vec3     { return a.pos }
func (a *Agent) SetPosition(p Vec3) { a.pos = p }
func (a *Agent) Forward() Vec3      { return a.forward }
func (a *Agent) Mode() ModeKind     { return a.mode }
func (a *Agent) setMode(k ModeKind) { a.mode = k }

// SetForward updates the facing. Zero and vertical-only vectors are ignored.
func (a *Agent) SetForward(f Vec3) {
	if f = f.Flat().Normalize(); !f.IsZero() {
		a.forward = f
	}
}

// Entity returns the query snapshot of a.
func (a *Agent) Entity() Entity {
	return Entity{ID: a.ID, Position: a.pos, Forward: a.forward, Faction: a.Faction, Layer: LayerEnemy}
}

// Move translates the agent along dir at its speed for dt seconds and turns
// it to face the movement. A zero dir leaves the agent in place.
func (a *Agent) Move(dir Vec3, dt float64) {
	if dir.IsZero() || dt <= 0 {
		return
	}
	a.pos = a.pos.Add(dir.Scale(a.Speed * dt))
	a.SetForward(dir)
}
