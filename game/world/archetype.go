package world

import (
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/enemy"
)

// Archetype is the spawn template of one kind of enemy. Kind selects the
// combat state machine ("fsm") or the steering movement controller
// ("steering"); only the matching settings block is used.
type Archetype struct {
	Kind      string  `mapstructure:"kind"`
	Variant   string  `mapstructure:"variant"`
	Faction   int     `mapstructure:"faction"`
	Speed     float64 `mapstructure:"speed"`
	TurnSpeed float64 `mapstructure:"turn_speed"`
	// Steering enables obstacle-aware movement for fsm archetypes.
	Steering bool `mapstructure:"steering"`

	Enemy      enemy.Settings        `mapstructure:"enemy"`
	Movement   ai.MovementSettings   `mapstructure:"movement"`
	Transition ai.TransitionSettings `mapstructure:"transition"`
}

// DefaultArchetypes returns the stock roster.
func DefaultArchetypes() map[string]Archetype {
	base := Archetype{
		Kind:       KindFSM,
		Faction:    1,
		Speed:      3.5,
		TurnSpeed:  6,
		Steering:   true,
		Enemy:      enemy.DefaultSettings(),
		Movement:   ai.DefaultMovementSettings(),
		Transition: ai.DefaultTransitionSettings(),
	}

	grunt := base
	grunt.Variant = "melee"

	archer := base
	archer.Variant = "ranged"
	archer.Enemy = enemy.DefaultRangedSettings()

	brute := base
	brute.Variant = "brute"
	brute.Speed = 2.5
	brute.Enemy.ChaseSpeed = 3
	brute.Enemy.AttackDamage = 18

	skirmisher := base
	skirmisher.Kind = KindSteering
	skirmisher.Faction = 2
	skirmisher.Speed = 4.5
	skirmisher.TurnSpeed = 8
	skirmisher.Steering = false

	return map[string]Archetype{
		"grunt":      grunt,
		"archer":     archer,
		"brute":      brute,
		"skirmisher": skirmisher,
	}
}
