package ai

// CombatMode approaches the target and strafes around it once inside
// StrafeRadius.
type CombatMode struct {
	eval    *Evaluator
	cfg     *CombatSettings
	target  TargetLocator
	enabled bool

	side      float64 // +1 strafes right, -1 left
	flipTimer float64
}

// NewCombatMode creates a disabled CombatMode.
func NewCombatMode(eval *Evaluator, cfg *CombatSettings, target TargetLocator) *CombatMode {
	return &CombatMode{eval: eval, cfg: cfg, target: target, side: 1}
}

func (m *CombatMode) Kind() ModeKind { return ModeCombat }
func (m *CombatMode) Enabled() bool  { return m.enabled }

func (m *CombatMode) Enable() { m.enabled = true }

func (m *CombatMode) Disable() {
	m.enabled = false
	m.flipTimer = 0
	m.side = 1
}

// StrafeSide returns +1 or -1.
func (m *CombatMode) StrafeSide() float64 { return m.side }

func (m *CombatMode) Direction(self Entity, dt float64) Vec3 {
	if !m.enabled || m.cfg == nil || m.target == nil {
		return Vec3{}
	}
	t, ok := m.target.Target()
	if !ok {
		return Vec3{}
	}
	to := t.Position.Sub(self.Position).Flat()
	dist := to.Len()
	if dist < 1e-6 {
		return Vec3{}
	}
	to = to.Scale(1 / dist)

	if dist < m.cfg.StrafeRadius {
		m.flipTimer += dt
		if m.cfg.FlipStrafe && m.cfg.StrafeSwitchInterval > 0 && m.flipTimer >= m.cfg.StrafeSwitchInterval {
			m.flipTimer = 0
			m.side = -m.side
		}
		strafe := Up.Cross(to).Scale(m.side)
		return m.eval.Evaluate(self, strafe, 0, m.cfg.Blend)
	}
	return m.eval.Evaluate(self, to, dist, m.cfg.Blend)
}
