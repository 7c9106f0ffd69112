package ai

import (
	"math/rand"
	"time"
)

// ModeKind identifies the steering mode an agent is in.
type ModeKind int

const (
	ModeIdle ModeKind = iota
	ModeCombat
	ModeFlee
	ModeDisabled
)

func (k ModeKind) String() string {
	switch k {
	case ModeIdle:
		return "idle"
	case ModeCombat:
		return "combat"
	case ModeFlee:
		return "flee"
	case ModeDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Mode is a stateful steering policy. Disable must clear every internal timer
// so that a later Enable starts from scratch.
type Mode interface {
	Kind() ModeKind
	Enable()
	Disable()
	Enabled() bool
	// Direction returns the desired unit movement direction for this tick,
	// or the zero vector for no movement.
	Direction(self Entity, dt float64) Vec3
}

// CombatSettings configures approach-and-strafe.
type CombatSettings struct {
	StrafeRadius         float64 `mapstructure:"strafe_radius"`
	FlipStrafe           bool    `mapstructure:"flip_strafe"`
	StrafeSwitchInterval float64 `mapstructure:"strafe_switch_interval"`
	Blend                float64 `mapstructure:"blend"`
}

// FleeSettings configures panic-flee.
type FleeSettings struct {
	MaxFleeRadius            float64 `mapstructure:"max_flee_radius"`
	Panic                    bool    `mapstructure:"panic"`
	PanicDirectionChangeTime float64 `mapstructure:"panic_direction_change_time"`
	PanicAngle               float64 `mapstructure:"panic_angle"`
	Blend                    float64 `mapstructure:"blend"`
}

// IdleSettings configures area wander.
type IdleSettings struct {
	WanderRadius           float64 `mapstructure:"wander_radius"`
	MinDirectionChangeTime float64 `mapstructure:"min_direction_change_time"`
	MaxDirectionChangeTime float64 `mapstructure:"max_direction_change_time"`
	BoundaryStart          float64 `mapstructure:"boundary_start"` // fraction of radius where pull-back begins
	BoundaryFull           float64 `mapstructure:"boundary_full"`  // fraction of radius where pull-back is total
	ArriveDistance         float64 `mapstructure:"arrive_distance"`
	Blend                  float64 `mapstructure:"blend"`
}

// MovementSettings bundles the steering configuration of one archetype.
type MovementSettings struct {
	Steering SteeringSettings `mapstructure:"steering"`
	Combat   CombatSettings   `mapstructure:"combat"`
	Flee     FleeSettings     `mapstructure:"flee"`
	Idle     IdleSettings     `mapstructure:"idle"`
}

// DefaultMovementSettings returns the stock tuning.
func DefaultMovementSettings() MovementSettings {
	return MovementSettings{
		Steering: DefaultSteeringSettings(),
		Combat: CombatSettings{
			StrafeRadius:         4,
			FlipStrafe:           true,
			StrafeSwitchInterval: 2.5,
			Blend:                0.5,
		},
		Flee: FleeSettings{
			MaxFleeRadius:            20,
			Panic:                    true,
			PanicDirectionChangeTime: 0.8,
			PanicAngle:               45,
			Blend:                    0.6,
		},
		Idle: IdleSettings{
			WanderRadius:           6,
			MinDirectionChangeTime: 2,
			MaxDirectionChangeTime: 5,
			BoundaryStart:          0.8,
			BoundaryFull:           0.9,
			ArriveDistance:         0.5,
			Blend:                  0.8,
		},
	}
}

func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// randRange returns a uniform value in [lo, hi].
func randRange(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
