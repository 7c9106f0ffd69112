package ai

import "math/rand"

// FleeMode runs directly away from the threat, optionally alternating with
// randomly skewed panic headings.
type FleeMode struct {
	eval    *Evaluator
	cfg     *FleeSettings
	threat  TargetLocator
	rng     *rand.Rand
	enabled bool

	panicTimer float64
	panicking  bool
	panicAngle float64
}

// NewFleeMode creates a disabled FleeMode. A nil rng is replaced with a
// time-seeded one.
func NewFleeMode(eval *Evaluator, cfg *FleeSettings, threat TargetLocator, rng *rand.Rand) *FleeMode {
	return &FleeMode{eval: eval, cfg: cfg, threat: threat, rng: newRand(rng)}
}

func (m *FleeMode) Kind() ModeKind  { return ModeFlee }
func (m *FleeMode) Enabled() bool   { return m.enabled }
func (m *FleeMode) Panicking() bool { return m.panicking }

func (m *FleeMode) Enable() { m.enabled = true }

func (m *FleeMode) Disable() {
	m.enabled = false
	m.ResetTimers()
}

// ResetTimers returns the panic cycle to its initial direct-flee phase.
func (m *FleeMode) ResetTimers() {
	m.panicTimer = 0
	m.panicking = false
	m.panicAngle = 0
}

func (m *FleeMode) Direction(self Entity, dt float64) Vec3 {
	if !m.enabled || m.cfg == nil || m.threat == nil {
		return Vec3{}
	}
	t, ok := m.threat.Target()
	if !ok {
		return Vec3{}
	}
	away := self.Position.Sub(t.Position).Flat()
	dist := away.Len()
	if m.cfg.MaxFleeRadius > 0 && dist > m.cfg.MaxFleeRadius {
		return Vec3{}
	}
	dir := away.Normalize()
	if dir.IsZero() {
		// Standing on the threat: back away from our own facing.
		dir = self.Forward.Flat().Normalize().Scale(-1)
	}

	if m.cfg.Panic && m.cfg.PanicDirectionChangeTime > 0 {
		m.panicTimer += dt
		if m.panicTimer >= m.cfg.PanicDirectionChangeTime {
			m.panicTimer = 0
			m.panicking = !m.panicking
			if m.panicking {
				m.panicAngle = randRange(m.rng, -m.cfg.PanicAngle, m.cfg.PanicAngle)
			}
		}
		if m.panicking {
			dir = dir.RotateY(m.panicAngle)
		}
	}
	return m.eval.Evaluate(self, dir, 0, m.cfg.Blend)
}
