package enemy

import "sort"

// Variant overlays a specialisation onto the base machine. Handlers replace
// base handlers per state, Transitions add or replace table entries, and
// Redirect rewrites the target of any transition (e.g. Chase → MaintainDistance).
type Variant struct {
	Name        string
	Handlers    map[State]Handler
	Transitions Table
	Redirect    map[State]State
}

// Melee is the base machine with no overrides.
func Melee() *Variant {
	return &Variant{Name: "melee"}
}

// Ranged keeps its distance instead of chasing and fires projectiles.
func Ranged() *Variant {
	return &Variant{
		Name: "ranged",
		Handlers: map[State]Handler{
			StateMaintainDistance: maintainDistanceState{},
			StateAttack:           attackState{strike: projectileStrike},
		},
		Redirect: map[State]State{
			StateChase: StateMaintainDistance,
		},
	}
}

// Brute charges targets at mid range and is vulnerable afterwards.
func Brute() *Variant {
	t := Table{}
	t.Set(StateChase, EventChargeReady, StateCharge)
	return &Variant{
		Name: "brute",
		Handlers: map[State]Handler{
			StateChase:      bruteChaseState{},
			StateCharge:     chargeState{},
			StateVulnerable: vulnerableState{},
		},
		Transitions: t,
	}
}

var variants = map[string]func() *Variant{
	"melee":  Melee,
	"ranged": Ranged,
	"brute":  Brute,
}

// VariantByName returns a fresh variant for name.
func VariantByName(name string) (*Variant, bool) {
	f, ok := variants[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// VariantNames lists the registered variant names in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of v with h registered for s. Hosts use it to supply
// states no shipped variant implements, such as AreaAttack or Summon.
func (v *Variant) With(s State, h Handler) *Variant {
	out := &Variant{
		Name:        v.Name,
		Handlers:    make(map[State]Handler, len(v.Handlers)+1),
		Transitions: v.Transitions,
		Redirect:    v.Redirect,
	}
	for k, hh := range v.Handlers {
		out.Handlers[k] = hh
	}
	out.Handlers[s] = h
	return out
}
