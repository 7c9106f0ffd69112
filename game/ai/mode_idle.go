package ai

import (
	"math"
	"math/rand"
)

// IdleMode wanders between random points inside a circle and is pulled back
// toward the centre near the boundary.
type IdleMode struct {
	eval    *Evaluator
	cfg     *IdleSettings
	rng     *rand.Rand
	enabled bool

	center    Vec3
	hasCenter bool

	point      Vec3
	timer      float64
	nextChange float64
	picked     bool
}

// NewIdleMode creates a disabled IdleMode with no wander centre.
func NewIdleMode(eval *Evaluator, cfg *IdleSettings, rng *rand.Rand) *IdleMode {
	return &IdleMode{eval: eval, cfg: cfg, rng: newRand(rng)}
}

func (m *IdleMode) Kind() ModeKind { return ModeIdle }
func (m *IdleMode) Enabled() bool  { return m.enabled }

// SetCenter anchors the wander circle.
func (m *IdleMode) SetCenter(c Vec3) {
	m.center = c
	m.hasCenter = true
	m.picked = false
}

// ClearCenter removes the anchor; the mode then produces no movement.
func (m *IdleMode) ClearCenter() { m.hasCenter = false }

// WanderPoint returns the current wander destination.
func (m *IdleMode) WanderPoint() (Vec3, bool) { return m.point, m.picked }

func (m *IdleMode) Enable() { m.enabled = true }

func (m *IdleMode) Disable() {
	m.enabled = false
	m.timer = 0
	m.nextChange = 0
	m.picked = false
}

func (m *IdleMode) Direction(self Entity, dt float64) Vec3 {
	if !m.enabled || m.cfg == nil || !m.hasCenter || m.cfg.WanderRadius <= 0 {
		return Vec3{}
	}
	m.timer += dt
	if !m.picked || m.timer >= m.nextChange || FlatDistance(self.Position, m.point) <= m.cfg.ArriveDistance {
		m.pick()
	}

	goal := m.point.Sub(self.Position).Flat().Normalize()
	toCenter := m.center.Sub(self.Position).Flat()
	ratio := toCenter.Len() / m.cfg.WanderRadius
	if ratio > m.cfg.BoundaryStart {
		k := 1.0
		if span := m.cfg.BoundaryFull - m.cfg.BoundaryStart; span > 0 {
			k = clamp((ratio-m.cfg.BoundaryStart)/span, 0, 1)
		}
		goal = goal.Scale(1 - k).Add(toCenter.Normalize().Scale(k))
	}
	if goal.IsZero() {
		return Vec3{}
	}
	return m.eval.Evaluate(self, goal, 0, m.cfg.Blend)
}

func (m *IdleMode) pick() {
	angle := m.rng.Float64() * 2 * math.Pi
	r := m.cfg.WanderRadius * math.Sqrt(m.rng.Float64())
	m.point = m.center.Add(Vec3{X: math.Cos(angle) * r, Z: math.Sin(angle) * r})
	m.timer = 0
	m.nextChange = randRange(m.rng, m.cfg.MinDirectionChangeTime, m.cfg.MaxDirectionChangeTime)
	m.picked = true
}
