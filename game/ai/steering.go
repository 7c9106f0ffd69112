package ai

import "math"

// Frame selects the basis the eight steering candidates are built in.
type Frame int

const (
	FrameLocal Frame = iota // relative to the agent's forward
	FrameWorld              // relative to world +Z
)

// CandidateCount is the size of the steering compass.
const CandidateCount = 8

// VetoWeight is the weight assigned to a candidate whose probe hit an obstacle.
const VetoWeight = -1.0

// SteeringSettings tunes the Evaluator. Shared read-only between agents.
type SteeringSettings struct {
	Frame             Frame   `mapstructure:"frame"`
	ProbeDistance     float64 `mapstructure:"probe_distance"`
	ObstacleMask      Layer   `mapstructure:"obstacle_mask"`
	NeighborMask      Layer   `mapstructure:"neighbor_mask"`
	SeparationRadius  float64 `mapstructure:"separation_radius"`
	SeparationPenalty float64 `mapstructure:"separation_penalty"`
	SeparationBiasDeg float64 `mapstructure:"separation_bias_deg"`
	TooCloseDistance  float64 `mapstructure:"too_close_distance"`
	LateralBonus      float64 `mapstructure:"lateral_bonus"`
}

// DefaultSteeringSettings returns the stock tuning.
func DefaultSteeringSettings() SteeringSettings {
	return SteeringSettings{
		Frame:             FrameLocal,
		ProbeDistance:     1.5,
		ObstacleMask:      LayerObstacle,
		NeighborMask:      LayerEnemy,
		SeparationRadius:  2.0,
		SeparationPenalty: 0.5,
		SeparationBiasDeg: 30,
		TooCloseDistance:  1.5,
		LateralBonus:      0.5,
	}
}

// Candidate is one scored compass direction.
type Candidate struct {
	Dir     Vec3
	Weight  float64
	Blocked bool
}

// Evaluator scores the eight compass directions around an agent and picks
// the best one for a goal direction. It holds no randomness: identical
// inputs always select the same candidate.
type Evaluator struct {
	query SpatialQuery
	cfg   *SteeringSettings
	last  [CandidateCount]Candidate
}

// NewEvaluator creates an Evaluator. query may be nil, in which case no
// probes or neighbour lookups are made.
func NewEvaluator(query SpatialQuery, cfg *SteeringSettings) *Evaluator {
	return &Evaluator{query: query, cfg: cfg}
}

// Candidates returns the scores of the last Evaluate call.
func (e *Evaluator) Candidates() [CandidateCount]Candidate { return e.last }

// Compass returns the eight candidate directions in evaluation order:
// forward, back, left, right, forward-right, forward-left, back-right,
// back-left.
func Compass(forward Vec3) [CandidateCount]Vec3 {
	f := forward.Flat().Normalize()
	if f.IsZero() {
		f = WorldForward
	}
	r := Up.Cross(f).Normalize()
	return [CandidateCount]Vec3{
		f,
		f.Scale(-1),
		r.Scale(-1),
		r,
		f.Add(r).Normalize(),
		f.Sub(r).Normalize(),
		r.Sub(f).Normalize(),
		f.Add(r).Scale(-1).Normalize(),
	}
}

// Evaluate returns normalize(best + separation*blend) for self moving along
// goalDir. goalDist is the remaining distance to the goal point and enables
// the lateral bonus when it is inside TooCloseDistance; pass 0 when the goal
// is a pure direction. A zero goalDir yields the zero vector.
func (e *Evaluator) Evaluate(self Entity, goalDir Vec3, goalDist, blend float64) Vec3 {
	if e == nil || e.cfg == nil {
		return Vec3{}
	}
	e.last = [CandidateCount]Candidate{}
	goal := goalDir.Flat().Normalize()
	if goal.IsZero() {
		return Vec3{}
	}

	basis := self.Forward
	if e.cfg.Frame == FrameWorld {
		basis = WorldForward
	}
	neighbors := e.neighbors(self)
	compass := Compass(basis)

	bestIdx := -1
	for i, c := range compass {
		cand := Candidate{Dir: c}
		if e.blocked(self.Position, c) {
			cand.Blocked = true
			cand.Weight = VetoWeight
		} else {
			cand.Weight = e.score(self, c, goal, goalDist, neighbors)
			if bestIdx < 0 || cand.Weight > e.last[bestIdx].Weight {
				bestIdx = i
			}
		}
		e.last[i] = cand
	}

	var best Vec3
	if bestIdx >= 0 {
		best = e.last[bestIdx].Dir
	}
	sep := e.separation(self, neighbors)
	return best.Add(sep.Scale(blend)).Normalize()
}

// Separation returns the biased separation vector for self on its own.
func (e *Evaluator) Separation(self Entity) Vec3 {
	if e == nil || e.cfg == nil {
		return Vec3{}
	}
	return e.separation(self, e.neighbors(self))
}

func (e *Evaluator) score(self Entity, c, goal Vec3, goalDist float64, neighbors []Entity) float64 {
	w := c.Dot(goal)
	if goalDist > 0 && goalDist < e.cfg.TooCloseDistance {
		lateral := 1 - math.Abs(c.Dot(goal))
		w += lateral * e.cfg.LateralBonus
	}
	r := e.cfg.SeparationRadius
	for _, n := range neighbors {
		to := n.Position.Sub(self.Position).Flat()
		d := to.Len()
		if d < 1e-6 || d > r {
			continue
		}
		facing := c.Dot(to.Scale(1 / d))
		if facing > 0 {
			w -= e.cfg.SeparationPenalty * facing * (1 - d/r)
		}
	}
	return w
}

func (e *Evaluator) separation(self Entity, neighbors []Entity) Vec3 {
	var sum Vec3
	for _, n := range neighbors {
		away := self.Position.Sub(n.Position).Flat()
		if away.Len() > e.cfg.SeparationRadius {
			continue
		}
		away = away.Normalize()
		if away.IsZero() {
			continue
		}
		sum = sum.Add(away.RotateY(e.cfg.SeparationBiasDeg))
	}
	return sum.Normalize()
}

func (e *Evaluator) neighbors(self Entity) []Entity {
	if e.query == nil || e.cfg.SeparationRadius <= 0 {
		return nil
	}
	found := e.query.OverlapSphere(self.Position, e.cfg.SeparationRadius, e.cfg.NeighborMask)
	out := found[:0:0]
	for _, n := range found {
		if n.ID != self.ID && n.Faction == self.Faction {
			out = append(out, n)
		}
	}
	return out
}

func (e *Evaluator) blocked(origin, dir Vec3) bool {
	if e.query == nil || e.cfg.ProbeDistance <= 0 {
		return false
	}
	_, hit := e.query.Raycast(origin, dir, e.cfg.ProbeDistance, e.cfg.ObstacleMask)
	return hit
}

// Smooth turns prev toward next at turnSpeed for dt seconds. When there is
// no previous direction the next one is taken as is; a zero next stops.
func Smooth(prev, next Vec3, turnSpeed, dt float64) Vec3 {
	if next.IsZero() {
		return Vec3{}
	}
	if prev.IsZero() || turnSpeed <= 0 {
		return next
	}
	return Slerp(prev, next, turnSpeed*dt).Normalize()
}
