package world

import (
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/aimanager"
	"github.com/kasuganosora/enemyai/game/enemy"
)

// Actor is one AI-driven body in a Room.
type Actor interface {
	aimanager.Agent
	Tick(dt float64)
	Entity() ai.Entity
	Kind() string
	Dead() bool
	Kill()
	// Flee asks the actor to run from the player. It reports whether the
	// actor supports fleeing.
	Flee() bool
}

// Actor kinds.
const (
	KindFSM      = "fsm"
	KindSteering = "steering"
)

// machineActor drives an enemy combat state machine.
type machineActor struct {
	*enemy.Machine
}

func (a machineActor) Entity() ai.Entity { return a.Agent().Entity() }
func (a machineActor) Kind() string      { return KindFSM }
func (a machineActor) Dead() bool        { return a.State() == enemy.StateDead }

// Flee makes the machine retreat as if threatened.
func (a machineActor) Flee() bool {
	return a.Fire(enemy.EventThreatened)
}

// steeringActor drives a movement controller. Its modes are reported to the
// scheduler as the nearest combat state.
type steeringActor struct {
	ctl     *ai.Controller
	player  ai.TargetLocator
	enabled bool
	dead    bool
}

func newSteeringActor(ctl *ai.Controller, player ai.TargetLocator) *steeringActor {
	return &steeringActor{ctl: ctl, player: player, enabled: true}
}

func (a *steeringActor) ID() string                 { return a.ctl.Agent().ID }
func (a *steeringActor) Position() ai.Vec3          { return a.ctl.Agent().Position() }
func (a *steeringActor) Faction() int               { return a.ctl.Agent().Faction }
func (a *steeringActor) Enabled() bool              { return a.enabled }
func (a *steeringActor) SetEnabled(on bool)         { a.enabled = on }
func (a *steeringActor) Entity() ai.Entity          { return a.ctl.Agent().Entity() }
func (a *steeringActor) Kind() string               { return KindSteering }
func (a *steeringActor) Dead() bool                 { return a.dead }
func (a *steeringActor) Alert(ai.Entity)            { a.ctl.Engage() }
func (a *steeringActor) Mode() ai.ModeKind          { return a.ctl.State() }
func (a *steeringActor) Controller() *ai.Controller { return a.ctl }

func (a *steeringActor) State() enemy.State {
	if a.dead {
		return enemy.StateDead
	}
	switch a.ctl.State() {
	case ai.ModeCombat:
		return enemy.StateChase
	case ai.ModeFlee:
		return enemy.StateRetreat
	case ai.ModeDisabled:
		return enemy.StateStunned
	default:
		return enemy.StateIdle
	}
}

// Target returns the player while the controller is engaged with it.
func (a *steeringActor) Target() (ai.Entity, bool) {
	if a.dead || a.player == nil || a.ctl.State() != ai.ModeCombat {
		return ai.Entity{}, false
	}
	return a.player.Target()
}

func (a *steeringActor) Tick(dt float64) {
	if a.enabled && !a.dead {
		a.ctl.Tick(dt)
	}
}

func (a *steeringActor) Kill() {
	a.dead = true
	a.ctl.Disable()
}

func (a *steeringActor) Flee() bool {
	if a.dead {
		return false
	}
	a.ctl.TriggerFlee(true)
	return true
}
