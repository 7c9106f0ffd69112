package enemy

import (
	"math"

	"github.com/kasuganosora/enemyai/game/ai"
)

// maintainDistanceState keeps a ranged enemy at OptimalDistance from its
// target, re-planning every RepositionInterval.
type maintainDistanceState struct{}

func (maintainDistanceState) Enter(m *Machine) {
	m.lostTimer = 0
	m.hasDestination = false
	m.path = nil
	// Forces a stand-off check on the first tick.
	m.repositionTimer = m.cfg.RepositionInterval
}

func (maintainDistanceState) Tick(m *Machine, dt float64) {
	t, visible := m.trackTarget(dt)
	if !visible && m.lostTimer >= m.cfg.LoseTargetGrace {
		m.clearTarget()
		m.Fire(EventTargetLost)
		return
	}

	pos := m.agent.Position()
	targetPos := m.lastKnown
	if visible {
		targetPos = t.Position
		dist := ai.FlatDistance(pos, targetPos)
		m.face(targetPos)
		if dist <= m.cfg.MeleeRange {
			m.Fire(EventMeleeRange)
			return
		}
		if m.attackCooldown <= 0 && dist <= m.cfg.AttackRange {
			m.Fire(EventAttackReady)
			return
		}
	}

	m.repositionTimer += dt
	if m.repositionTimer >= m.cfg.RepositionInterval {
		m.repositionTimer = 0
		dist := ai.FlatDistance(pos, targetPos)
		if math.Abs(dist-m.cfg.OptimalDistance) > m.cfg.DistanceTolerance {
			away := pos.Sub(targetPos).Flat().Normalize()
			if away.IsZero() {
				away = m.agent.Forward().Scale(-1)
			}
			m.setDestination(targetPos.Add(away.Scale(m.cfg.OptimalDistance)), m.cfg.DistanceTolerance*2)
		}
	}
	if m.hasDestination && m.followPath(m.cfg.ChaseSpeed, dt) {
		m.hasDestination = false
		if visible {
			m.face(targetPos)
		}
	}
}

func (maintainDistanceState) Exit(m *Machine) {
	m.hasDestination = false
	m.path = nil
}

// projectileStrike fires at t through the host launcher, or applies the
// damage directly when the host has none.
func projectileStrike(m *Machine, t ai.Entity) {
	origin := m.eye()
	dir := t.Position.Add(ai.Vec3{Y: m.cfg.EyeHeight}).Sub(origin).Normalize()
	if m.projectiles != nil {
		m.projectiles.Launch(m.ID(), origin, dir, m.cfg.AttackDamage)
		return
	}
	if m.damage != nil {
		m.damage.ApplyDamage(t.ID, m.cfg.AttackDamage, dir.Flat().Normalize())
	}
}
