package enemy

// State enumerates the combat states of an enemy.
type State int

const (
	StateIdle State = iota
	StatePatrol
	StateChase
	StateAttack
	StateRetreat
	StateMaintainDistance
	StateStunned
	StateDead
	StateAreaAttack
	StateCharge
	StateSummon
	StateVulnerable

	stateCount
)

var stateNames = [stateCount]string{
	"idle", "patrol", "chase", "attack", "retreat", "maintain_distance",
	"stunned", "dead", "area_attack", "charge", "summon", "vulnerable",
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return "unknown"
}

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool { return s >= 0 && s < stateCount }

// States returns every enumerated state in declaration order.
func States() []State {
	out := make([]State, 0, stateCount)
	for s := State(0); s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}

// Event is an input to the transition table.
type Event int

const (
	EventTargetSpotted Event = iota
	EventIdleTimeout
	EventTargetLost
	EventAttackReady
	EventAttackFinished
	EventTargetOutOfRange
	EventRetreatFinished
	EventMeleeRange
	EventThreatened
	EventAlerted
	EventStunned
	EventRecovered
	EventDied
	EventChargeReady
	EventChargeFinished
	EventAreaAttack
	EventSummon

	eventCount
)

var eventNames = [eventCount]string{
	"target_spotted", "idle_timeout", "target_lost", "attack_ready",
	"attack_finished", "target_out_of_range", "retreat_finished",
	"melee_range", "threatened", "alerted", "stunned", "recovered", "died",
	"charge_ready", "charge_finished", "area_attack", "summon",
}

func (e Event) String() string {
	if e >= 0 && e < eventCount {
		return eventNames[e]
	}
	return "unknown"
}

// Events returns every event in declaration order.
func Events() []Event {
	out := make([]Event, 0, eventCount)
	for e := Event(0); e < eventCount; e++ {
		out = append(out, e)
	}
	return out
}

// Table maps (state, event) to the next state.
type Table map[State]map[Event]State

// Next looks up the transition for s on e.
func (t Table) Next(s State, e Event) (State, bool) {
	next, ok := t[s][e]
	return next, ok
}

// Set adds or replaces one entry.
func (t Table) Set(from State, e Event, to State) {
	row, ok := t[from]
	if !ok {
		row = make(map[Event]State)
		t[from] = row
	}
	row[e] = to
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for s, row := range t {
		cp := make(map[Event]State, len(row))
		for e, to := range row {
			cp[e] = to
		}
		out[s] = cp
	}
	return out
}

// Merge returns a copy of t with every entry of overlay applied on top.
func (t Table) Merge(overlay Table) Table {
	out := t.Clone()
	for s, row := range overlay {
		for e, to := range row {
			out.Set(s, e, to)
		}
	}
	return out
}

// BaseTable returns the transition table shared by every variant.
func BaseTable() Table {
	t := Table{}
	t.Set(StateIdle, EventTargetSpotted, StateChase)
	t.Set(StateIdle, EventIdleTimeout, StatePatrol)
	t.Set(StateIdle, EventAlerted, StateChase)

	t.Set(StatePatrol, EventTargetSpotted, StateChase)
	t.Set(StatePatrol, EventAlerted, StateChase)

	t.Set(StateChase, EventTargetLost, StatePatrol)
	t.Set(StateChase, EventAttackReady, StateAttack)
	t.Set(StateChase, EventThreatened, StateRetreat)
	t.Set(StateChase, EventAreaAttack, StateAreaAttack)
	t.Set(StateChase, EventSummon, StateSummon)

	t.Set(StateAttack, EventAttackFinished, StateChase)
	t.Set(StateAttack, EventTargetOutOfRange, StateChase)
	t.Set(StateAttack, EventThreatened, StateRetreat)

	t.Set(StateRetreat, EventRetreatFinished, StateIdle)

	t.Set(StateMaintainDistance, EventTargetLost, StatePatrol)
	t.Set(StateMaintainDistance, EventMeleeRange, StateRetreat)
	t.Set(StateMaintainDistance, EventAttackReady, StateAttack)
	t.Set(StateMaintainDistance, EventThreatened, StateRetreat)

	t.Set(StateStunned, EventRecovered, StateIdle)
	t.Set(StateVulnerable, EventRecovered, StateChase)
	t.Set(StateCharge, EventChargeFinished, StateVulnerable)
	t.Set(StateAreaAttack, EventAttackFinished, StateChase)
	t.Set(StateSummon, EventAttackFinished, StateChase)

	for _, s := range States() {
		if s == StateDead {
			continue
		}
		t.Set(s, EventDied, StateDead)
		t.Set(s, EventStunned, StateStunned)
	}
	return t
}
