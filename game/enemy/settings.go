package enemy

import "github.com/kasuganosora/enemyai/game/ai"

// Settings is the immutable tuning record of one enemy archetype. Durations
// are in seconds, distances in world units.
type Settings struct {
	// Perception
	DetectionRadius float64  `mapstructure:"detection_radius"`
	FOVAngle        float64  `mapstructure:"fov_angle"` // full cone angle in degrees
	EyeHeight       float64  `mapstructure:"eye_height"`
	TargetMask      ai.Layer `mapstructure:"target_mask"`
	ObstacleMask    ai.Layer `mapstructure:"obstacle_mask"`

	// Movement
	PatrolSpeed      float64 `mapstructure:"patrol_speed"`
	ChaseSpeed       float64 `mapstructure:"chase_speed"`
	StoppingDistance float64 `mapstructure:"stopping_distance"`
	SteeringBlend    float64 `mapstructure:"steering_blend"`

	// Idle / Patrol
	IdleMinWait    float64 `mapstructure:"idle_min_wait"`
	IdleMaxWait    float64 `mapstructure:"idle_max_wait"`
	PatrolRadius   float64 `mapstructure:"patrol_radius"`
	PatrolWaitTime float64 `mapstructure:"patrol_wait_time"`

	// Chase / Attack
	LoseTargetGrace float64 `mapstructure:"lose_target_grace"`
	AttackRange     float64 `mapstructure:"attack_range"`
	AttackCooldown  float64 `mapstructure:"attack_cooldown"`
	AttackWindup    float64 `mapstructure:"attack_windup"`
	AttackDamage    float64 `mapstructure:"attack_damage"`

	// Retreat
	RetreatDistance    float64 `mapstructure:"retreat_distance"`
	RetreatMaxDuration float64 `mapstructure:"retreat_max_duration"`

	// Ranged
	OptimalDistance    float64 `mapstructure:"optimal_distance"`
	DistanceTolerance  float64 `mapstructure:"distance_tolerance"`
	RepositionInterval float64 `mapstructure:"reposition_interval"`
	MeleeRange         float64 `mapstructure:"melee_range"`

	// Brute
	ChargeMinRange     float64 `mapstructure:"charge_min_range"`
	ChargeMaxRange     float64 `mapstructure:"charge_max_range"`
	ChargeSpeed        float64 `mapstructure:"charge_speed"`
	ChargeDuration     float64 `mapstructure:"charge_duration"`
	ChargeCooldown     float64 `mapstructure:"charge_cooldown"`
	ChargeDamage       float64 `mapstructure:"charge_damage"`
	VulnerableDuration float64 `mapstructure:"vulnerable_duration"`
}

// DefaultSettings returns the stock melee tuning.
func DefaultSettings() Settings {
	return Settings{
		DetectionRadius: 10,
		FOVAngle:        120,
		EyeHeight:       1.6,
		TargetMask:      ai.LayerPlayer,
		ObstacleMask:    ai.LayerObstacle,

		PatrolSpeed:      2,
		ChaseSpeed:       4,
		StoppingDistance: 0.3,
		SteeringBlend:    0.5,

		IdleMinWait:    2,
		IdleMaxWait:    4,
		PatrolRadius:   8,
		PatrolWaitTime: 2,

		LoseTargetGrace: 5,
		AttackRange:     2,
		AttackCooldown:  1.5,
		AttackWindup:    0,
		AttackDamage:    10,

		RetreatDistance:    6,
		RetreatMaxDuration: 3,

		OptimalDistance:    7,
		DistanceTolerance:  1,
		RepositionInterval: 1.5,
		MeleeRange:         3,

		ChargeMinRange:     5,
		ChargeMaxRange:     10,
		ChargeSpeed:        10,
		ChargeDuration:     1.2,
		ChargeCooldown:     6,
		ChargeDamage:       20,
		VulnerableDuration: 2,
	}
}

// DefaultRangedSettings returns DefaultSettings tuned for a ranged variant.
func DefaultRangedSettings() Settings {
	s := DefaultSettings()
	s.DetectionRadius = 14
	s.AttackRange = 12
	s.AttackCooldown = 2
	s.AttackDamage = 6
	return s
}

// DamageSink receives melee hits.
type DamageSink interface {
	ApplyDamage(targetID string, amount float64, dir ai.Vec3)
}

// ProjectileLauncher fires ranged attacks. Hosts without one fall back to
// DamageSink.
type ProjectileLauncher interface {
	Launch(ownerID string, origin, dir ai.Vec3, damage float64)
}
