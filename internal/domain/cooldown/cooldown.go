// Package cooldown gates how often a persistent condition is handed to the event sink.
//
// Each label moves through an explicit state machine:
//
//	inactive --emit--> cooling --clear--> cleared --emit--> cooling
//	                   cooling --emit after cooldown--> cooling (timestamp refreshed)
//
// Scoring never consults the gate; only logging does.
package cooldown

import (
	"sort"
	"time"
)

// DefaultCooldown is the minimum spacing between two logs of the same label.
const DefaultCooldown = 5 * time.Second

// State is the lifecycle position of one label.
type State int

// Label states.
const (
	Inactive State = iota
	CoolingDown
	Cleared
)

func (s State) String() string {
	switch s {
	case CoolingDown:
		return "cooling_down"
	case Cleared:
		return "cleared"
	default:
		return "inactive"
	}
}

type entry struct {
	state    State
	lastEmit time.Time
}

// Gate tracks per-label emission times. It is not safe for concurrent use;
// the owning session serializes access.
type Gate struct {
	cooldown time.Duration
	entries  map[string]*entry
}

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithCooldown sets the minimum spacing between logs of the same label.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.cooldown = d
		}
	}
}

// New creates a gate with every label inactive.
func New(opts ...Option) *Gate {
	g := &Gate{
		cooldown: DefaultCooldown,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldEmit reports whether label may be logged at now and, if so, records now
// as its last emission. Inactive and cleared labels always emit.
func (g *Gate) ShouldEmit(label string, now time.Time) bool {
	e, ok := g.entries[label]
	if !ok {
		g.entries[label] = &entry{state: CoolingDown, lastEmit: now}
		return true
	}
	if e.state == CoolingDown && now.Sub(e.lastEmit) < g.cooldown {
		return false
	}
	e.state = CoolingDown
	e.lastEmit = now
	return true
}

// Clear moves a cooling label to cleared so its next occurrence logs at once.
// Clearing an inactive or already cleared label is a no-op.
func (g *Gate) Clear(label string) {
	if e, ok := g.entries[label]; ok && e.state == CoolingDown {
		e.state = Cleared
	}
}

// State returns the current state of label.
func (g *Gate) State(label string) State {
	if e, ok := g.entries[label]; ok {
		return e.state
	}
	return Inactive
}

// LastEmit returns when label was last logged; ok is false if it never was.
func (g *Gate) LastEmit(label string) (time.Time, bool) {
	e, ok := g.entries[label]
	if !ok {
		return time.Time{}, false
	}
	return e.lastEmit, true
}

// Cooling returns the labels currently cooling down, sorted.
func (g *Gate) Cooling() []string {
	var out []string
	for label, e := range g.entries {
		if e.state == CoolingDown {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}

// Cooldown returns the configured spacing.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
