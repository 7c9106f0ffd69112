package enemy

import "github.com/kasuganosora/enemyai/game/ai"

// bruteChaseState charges a visible target inside the charge band and
// otherwise chases like the base state.
type bruteChaseState struct {
	chaseState
}

func (b bruteChaseState) Tick(m *Machine, dt float64) {
	if m.chargeCooldown <= 0 {
		if t, ok := m.locate(m.cfg.DetectionRadius); ok && m.canSee(t) {
			d := ai.FlatDistance(m.agent.Position(), t.Position)
			if d >= m.cfg.ChargeMinRange && d <= m.cfg.ChargeMaxRange {
				m.acquire(t)
				if m.Fire(EventChargeReady) {
					return
				}
			}
		}
	}
	b.chaseState.Tick(m, dt)
}

// chargeState dashes along a fixed heading and hits the target at most once.
type chargeState struct{}

func (chargeState) Enter(m *Machine) {
	m.chargeHit = false
	m.chargeDir = m.lastKnown.Sub(m.agent.Position()).Flat().Normalize()
	if m.chargeDir.IsZero() {
		m.chargeDir = m.agent.Forward()
	}
	m.agent.SetForward(m.chargeDir)
}

func (chargeState) Tick(m *Machine, dt float64) {
	if m.stateTime >= m.cfg.ChargeDuration {
		m.Fire(EventChargeFinished)
		return
	}
	step := m.cfg.ChargeSpeed * dt
	if m.world != nil {
		if _, hit := m.world.Raycast(m.agent.Position(), m.chargeDir, step+m.cfg.StoppingDistance, m.cfg.ObstacleMask); hit {
			// Ran into a wall: the charge ends early.
			m.Fire(EventChargeFinished)
			return
		}
	}
	m.agent.SetPosition(m.agent.Position().Add(m.chargeDir.Scale(step)))
	if m.chargeHit {
		return
	}
	if t, ok := m.locate(m.cfg.AttackRange); ok {
		m.chargeHit = true
		if m.damage != nil {
			m.damage.ApplyDamage(t.ID, m.cfg.ChargeDamage, m.chargeDir)
		}
	}
}

// Exit starts the cooldown however the charge ended.
func (chargeState) Exit(m *Machine) { m.chargeCooldown = m.cfg.ChargeCooldown }

// vulnerableState stands still after a charge.
type vulnerableState struct{}

func (vulnerableState) Enter(*Machine) {}

func (vulnerableState) Tick(m *Machine, _ float64) {
	if m.stateTime >= m.cfg.VulnerableDuration {
		m.Fire(EventRecovered)
	}
}

func (vulnerableState) Exit(*Machine) {}
