package enemy

import "github.com/kasuganosora/enemyai/game/ai"

// baseHandlers returns the handlers every variant starts from. AreaAttack,
// Charge, Summon, Vulnerable and MaintainDistance are left to variants.
func baseHandlers() [stateCount]Handler {
	var h [stateCount]Handler
	h[StateIdle] = idleState{}
	h[StatePatrol] = patrolState{}
	h[StateChase] = chaseState{}
	h[StateAttack] = attackState{strike: meleeStrike}
	h[StateRetreat] = retreatState{}
	h[StateStunned] = stunnedState{}
	h[StateDead] = deadState{}
	return h
}

// ---- Idle ----

type idleState struct{}

func (idleState) Enter(m *Machine) {
	m.waitTimer = m.randRange(m.cfg.IdleMinWait, m.cfg.IdleMaxWait)
}

func (idleState) Tick(m *Machine, _ float64) {
	if t, ok := m.scan(); ok {
		m.acquire(t)
		m.Fire(EventTargetSpotted)
		return
	}
	if m.stateTime >= m.waitTimer {
		m.Fire(EventIdleTimeout)
	}
}

func (idleState) Exit(*Machine) {}

// ---- Patrol ----

type patrolState struct{}

func (patrolState) Enter(m *Machine) {
	m.waiting = false
	m.waitTimer = 0
	pickPatrolPoint(m)
}

func (patrolState) Tick(m *Machine, dt float64) {
	if t, ok := m.scan(); ok {
		m.acquire(t)
		m.Fire(EventTargetSpotted)
		return
	}
	if m.waiting || !m.hasDestination {
		m.waitTimer += dt
		if m.waitTimer >= m.cfg.PatrolWaitTime {
			m.waiting = false
			m.waitTimer = 0
			pickPatrolPoint(m)
		}
		return
	}
	if m.followPath(m.cfg.PatrolSpeed, dt) {
		m.waiting = true
		m.waitTimer = 0
	}
}

func (patrolState) Exit(m *Machine) {
	m.hasDestination = false
	m.path = nil
}

func pickPatrolPoint(m *Machine) {
	p := m.randomPointAround(m.initialPos, m.cfg.PatrolRadius)
	m.setDestination(p, m.cfg.PatrolRadius)
}

// ---- Chase ----

type chaseState struct{}

func (chaseState) Enter(m *Machine) { m.lostTimer = 0 }

// Tick only re-checks the target already being chased; a second target that
// comes into view while this one is lost is ignored until Patrol or Idle
// scan again.
func (chaseState) Tick(m *Machine, dt float64) {
	t, visible := m.trackTarget(dt)
	if !visible {
		if m.lostTimer >= m.cfg.LoseTargetGrace {
			m.clearTarget()
			m.Fire(EventTargetLost)
			return
		}
		m.moveToward(m.lastKnown, m.cfg.ChaseSpeed, m.cfg.StoppingDistance, dt)
		return
	}
	dist := ai.FlatDistance(m.agent.Position(), t.Position)
	if dist <= m.cfg.AttackRange {
		if m.attackCooldown <= 0 {
			m.Fire(EventAttackReady)
			return
		}
		m.face(t.Position)
		return
	}
	m.moveToward(m.lastKnown, m.cfg.ChaseSpeed, m.cfg.AttackRange*0.8, dt)
}

func (chaseState) Exit(*Machine) {}

// ---- Attack ----

// attackState strikes exactly once per entry. strike delivers the hit.
type attackState struct {
	strike func(m *Machine, t ai.Entity)
}

func (attackState) Enter(m *Machine) { m.hasAttacked = false }

func (a attackState) Tick(m *Machine, _ float64) {
	if m.hasAttacked {
		return
	}
	t, ok := m.locate(m.cfg.AttackRange)
	if !ok {
		m.Fire(EventTargetOutOfRange)
		return
	}
	m.face(t.Position)
	if m.stateTime < m.cfg.AttackWindup {
		return
	}
	a.strike(m, t)
	m.hasAttacked = true
	m.attackCooldown = m.cfg.AttackCooldown
	m.Fire(EventAttackFinished)
}

func (attackState) Exit(*Machine) {}

func meleeStrike(m *Machine, t ai.Entity) {
	if m.damage == nil {
		return
	}
	dir := t.Position.Sub(m.agent.Position()).Flat().Normalize()
	m.damage.ApplyDamage(t.ID, m.cfg.AttackDamage, dir)
}

// ---- Retreat ----

type retreatState struct{}

func (retreatState) Enter(m *Machine) {
	dest := m.initialPos
	if m.hasTarget {
		away := m.agent.Position().Sub(m.lastKnown).Flat().Normalize()
		if away.IsZero() {
			away = m.agent.Forward().Scale(-1)
		}
		dest = m.agent.Position().Add(away.Scale(m.cfg.RetreatDistance))
	}
	if !m.setDestination(dest, m.cfg.RetreatDistance) {
		m.destination = m.agent.Position()
		m.hasDestination = true
	}
}

func (retreatState) Tick(m *Machine, dt float64) {
	arrived := m.followPath(m.cfg.ChaseSpeed, dt)
	if arrived || m.stateTime >= m.cfg.RetreatMaxDuration {
		m.Fire(EventRetreatFinished)
	}
}

func (retreatState) Exit(m *Machine) {
	m.hasDestination = false
	m.path = nil
}

// ---- Stunned / Dead ----

type stunnedState struct{}

func (stunnedState) Enter(m *Machine) { m.stunDuration = m.pendingStun }

func (stunnedState) Tick(m *Machine, _ float64) {
	if m.stateTime >= m.stunDuration {
		m.Fire(EventRecovered)
	}
}

func (stunnedState) Exit(m *Machine) { m.stunDuration = 0 }

type deadState struct{}

func (deadState) Enter(m *Machine) {
	m.clearTarget()
	m.hasDestination = false
	m.path = nil
}

func (deadState) Tick(*Machine, float64) {}
func (deadState) Exit(*Machine)          {}
