package ai

import (
	"math/rand"

	"go.uber.org/zap"
)

// TransitionSettings holds the thresholds of the movement state machine.
type TransitionSettings struct {
	DetectionRadius          float64 `mapstructure:"detection_radius"`
	LoseInterestRadius       float64 `mapstructure:"lose_interest_radius"`
	LoseInterestDelay        float64 `mapstructure:"lose_interest_delay"`
	FleeForceMinDuration     float64 `mapstructure:"flee_force_min_duration"`
	FleeMinDuration          float64 `mapstructure:"flee_min_duration"`
	FleeMaxDuration          float64 `mapstructure:"flee_max_duration"`
	FleeReturnCombatDistance float64 `mapstructure:"flee_return_combat_distance"`
}

// DefaultTransitionSettings returns the stock thresholds.
func DefaultTransitionSettings() TransitionSettings {
	return TransitionSettings{
		DetectionRadius:          8,
		LoseInterestRadius:       12,
		LoseInterestDelay:        3,
		FleeForceMinDuration:     1.5,
		FleeMinDuration:          3,
		FleeMaxDuration:          6,
		FleeReturnCombatDistance: 10,
	}
}

// Controller is the movement state machine of one agent. It selects one of
// the Idle, Combat and Flee modes (or Disabled), runs it every tick and
// applies the smoothed result to the agent. Not safe for concurrent use.
type Controller struct {
	agent  *Agent
	move   *MovementSettings
	cfg    *TransitionSettings
	player TargetLocator
	rng    *rand.Rand
	logger *zap.Logger

	eval   *Evaluator
	idle   *IdleMode
	combat *CombatMode
	flee   *FleeMode

	state ModeKind

	loseInterestTimer float64
	fleeTimer         float64
	fleeDuration      float64
	fleeSkill         bool

	dir Vec3 // smoothed direction applied last tick
}

// NewController wires the three modes over a shared Evaluator. The wander
// centre is the agent's current position. move or cfg may be nil, in which
// case the controller stays inert.
func NewController(agent *Agent, move *MovementSettings, cfg *TransitionSettings, query SpatialQuery,
	player TargetLocator, rng *rand.Rand, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng = newRand(rng)
	c := &Controller{
		agent:  agent,
		move:   move,
		cfg:    cfg,
		player: player,
		rng:    rng,
		logger: logger,
		state:  ModeIdle,
	}
	if move != nil {
		c.eval = NewEvaluator(query, &move.Steering)
		c.idle = NewIdleMode(c.eval, &move.Idle, rng)
		c.combat = NewCombatMode(c.eval, &move.Combat, player)
		c.flee = NewFleeMode(c.eval, &move.Flee, player, rng)
		if agent != nil {
			c.idle.SetCenter(agent.Position())
		}
		c.idle.Enable()
	}
	return c
}

// State returns the active mode.
func (c *Controller) State() ModeKind { return c.state }

// Agent returns the controlled agent.
func (c *Controller) Agent() *Agent { return c.agent }

// Evaluator returns the shared steering evaluator.
func (c *Controller) Evaluator() *Evaluator { return c.eval }

// Direction returns the smoothed direction applied on the last tick.
func (c *Controller) Direction() Vec3 { return c.dir }

// FleeElapsed returns the time spent in the current flee.
func (c *Controller) FleeElapsed() float64 { return c.fleeTimer }

// LoseInterestElapsed returns how long the player has continuously been
// outside the lose-interest radius.
func (c *Controller) LoseInterestElapsed() float64 { return c.loseInterestTimer }

// SetWanderCenter moves the idle wander circle.
func (c *Controller) SetWanderCenter(p Vec3) {
	if c.idle != nil {
		c.idle.SetCenter(p)
	}
}

// Tick advances the machine by dt seconds: evaluates transitions, runs the
// active mode and moves the agent.
func (c *Controller) Tick(dt float64) {
	if !c.ready() || c.state == ModeDisabled {
		return
	}
	c.evaluate(dt)

	mode := c.mode(c.state)
	if mode == nil {
		c.dir = Vec3{}
		return
	}
	next := mode.Direction(c.agent.Entity(), dt)
	c.dir = Smooth(c.dir, next, c.agent.TurnSpeed, dt)
	c.agent.Move(c.dir, dt)
}

// TriggerFlee switches to Flee. skill marks an externally forced flee: no
// transition is evaluated during FleeForceMinDuration, and returning to
// combat then also requires the player within FleeReturnCombatDistance.
func (c *Controller) TriggerFlee(skill bool) {
	if !c.ready() || c.state == ModeDisabled {
		return
	}
	c.fleeSkill = skill
	c.setState(ModeFlee)
	// Entering Flee always starts its timers from zero, even though
	// setState has already done so.
	c.fleeTimer = 0
	c.flee.ResetTimers()
}

// Engage switches an idle controller to Combat, as when a nearby ally has
// spotted the player. Other modes are left alone.
func (c *Controller) Engage() {
	if c.ready() && c.state == ModeIdle {
		c.setState(ModeCombat)
	}
}

// Disable stops all steering until Enable is called.
func (c *Controller) Disable() {
	if !c.ready() {
		return
	}
	c.setState(ModeDisabled)
}

// Enable resumes a disabled controller in Idle.
func (c *Controller) Enable() {
	if c.ready() && c.state == ModeDisabled {
		c.setState(ModeIdle)
	}
}

func (c *Controller) ready() bool {
	return c.agent != nil && c.move != nil && c.cfg != nil
}

func (c *Controller) evaluate(dt float64) {
	dist, seen := c.playerDistance()

	switch c.state {
	case ModeIdle:
		if seen && dist <= c.cfg.DetectionRadius {
			c.setState(ModeCombat)
		}
	case ModeCombat:
		if !seen || dist > c.cfg.LoseInterestRadius {
			c.loseInterestTimer += dt
			if c.loseInterestTimer >= c.cfg.LoseInterestDelay {
				c.setState(ModeIdle)
			}
		} else {
			c.loseInterestTimer = 0
		}
	case ModeFlee:
		c.fleeTimer += dt
		if c.fleeSkill {
			if c.fleeTimer < c.cfg.FleeForceMinDuration {
				return
			}
			if c.fleeTimer >= c.fleeDuration && seen && dist <= c.cfg.FleeReturnCombatDistance {
				c.setState(ModeCombat)
			}
			return
		}
		if c.fleeTimer >= c.fleeDuration {
			c.setState(ModeCombat)
		}
	}
}

func (c *Controller) playerDistance() (float64, bool) {
	if c.player == nil {
		return 0, false
	}
	p, ok := c.player.Target()
	if !ok {
		return 0, false
	}
	return FlatDistance(c.agent.Position(), p.Position), true
}

func (c *Controller) setState(next ModeKind) {
	prev := c.state
	if prev == next && next != ModeFlee {
		return
	}
	if m := c.mode(prev); m != nil {
		m.Disable()
	}
	c.loseInterestTimer = 0
	c.fleeTimer = 0
	if next == ModeFlee {
		c.fleeDuration = randRange(c.rng, c.cfg.FleeMinDuration, c.cfg.FleeMaxDuration)
	} else {
		c.fleeSkill = false
	}
	if next == ModeDisabled {
		c.dir = Vec3{}
	}
	if m := c.mode(next); m != nil {
		m.Enable()
	}
	c.state = next
	c.agent.setMode(next)
	c.logger.Debug("movement mode changed",
		zap.String("agent_id", c.agent.ID),
		zap.Stringer("from", prev),
		zap.Stringer("to", next))
}

func (c *Controller) mode(k ModeKind) Mode {
	switch k {
	case ModeIdle:
		return c.idle
	case ModeCombat:
		return c.combat
	case ModeFlee:
		return c.flee
	default:
		return nil
	}
}
