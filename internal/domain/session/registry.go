package session

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/proctorwatch/internal/domain/cooldown"
)

// Registry maps candidate identifiers to their live State. Insertions and
// removals are mutually exclusive; each State is serialized by its own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State
	cooldown time.Duration
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithCooldown sets the cooldown used by gates of new sessions.
func WithCooldown(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.cooldown = d
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*State),
		cooldown: cooldown.DefaultCooldown,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the state for candidateID, creating it with timestamps
// set to now when absent. created reports whether a new state was made.
func (r *Registry) GetOrCreate(candidateID string, now time.Time) (state *State, created bool) {
	r.mu.RLock()
	s, ok := r.sessions[candidateID]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[candidateID]; ok {
		return s, false
	}
	s = newState(candidateID, now, cooldown.New(cooldown.WithCooldown(r.cooldown)))
	r.sessions[candidateID] = s
	return s, true
}

// WithSession resolves (or creates) the state for candidateID and runs fn while
// holding it, so frames for one candidate apply in order.
func (r *Registry) WithSession(candidateID string, now time.Time, fn func(s *State) error) error {
	s, _ := r.GetOrCreate(candidateID, now)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// Lookup returns the live state for candidateID without creating one.
func (r *Registry) Lookup(candidateID string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[candidateID]
	return s, ok
}

// End evicts the state for candidateID. The next frame starts a fresh session.
// Ending an unknown candidate is a no-op and returns false.
func (r *Registry) End(candidateID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[candidateID]; !ok {
		return false
	}
	delete(r.sessions, candidateID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Candidates returns the identifiers with live sessions, sorted.
func (r *Registry) Candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
