// Package session holds per-candidate hysteresis state and the registry that owns it.
package session

import (
	"sync"
	"time"

	"github.com/okian/proctorwatch/internal/domain/cooldown"
)

// State is the hysteresis and cooldown memory of one candidate. All methods
// except CandidateID and CreatedAt must be called while the state is held
// through Registry.WithSession.
type State struct {
	mu sync.Mutex

	candidateID string
	createdAt   time.Time

	lastFacePresentAt     time.Time
	lastLookingAtScreenAt time.Time
	gate                  *cooldown.Gate
	frames                uint64
}

func newState(candidateID string, now time.Time, gate *cooldown.Gate) *State {
	return &State{
		candidateID:           candidateID,
		createdAt:             now,
		lastFacePresentAt:     now,
		lastLookingAtScreenAt: now,
		gate:                  gate,
	}
}

// CandidateID returns the owning candidate.
func (s *State) CandidateID() string { return s.candidateID }

// CreatedAt returns when the session started.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// Gate returns the cooldown gate of this session.
func (s *State) Gate() *cooldown.Gate { return s.gate }

// Frames returns the number of frames applied to this state.
func (s *State) Frames() uint64 { return s.frames }

// MarkFrame counts one applied frame.
func (s *State) MarkFrame() { s.frames++ }

// LastFacePresentAt returns the last time a face was seen.
func (s *State) LastFacePresentAt() time.Time { return s.lastFacePresentAt }

// LastLookingAtScreenAt returns the last time the face was centered.
func (s *State) LastLookingAtScreenAt() time.Time { return s.lastLookingAtScreenAt }

// FacePresent records that a face was visible at now.
func (s *State) FacePresent(now time.Time) {
	advance(&s.lastFacePresentAt, now)
}

// LookingAtScreen records that the face was centered at now.
func (s *State) LookingAtScreen(now time.Time) {
	advance(&s.lastLookingAtScreenAt, now)
}

// AbsentFor returns how long no face has been seen as of now.
func (s *State) AbsentFor(now time.Time) time.Duration {
	return elapsed(s.lastFacePresentAt, now)
}

// LookingAwayFor returns how long the face has been off-center as of now.
func (s *State) LookingAwayFor(now time.Time) time.Duration {
	return elapsed(s.lastLookingAtScreenAt, now)
}

// advance moves *ts forward to now; timestamps never go backwards.
func advance(ts *time.Time, now time.Time) {
	if now.After(*ts) {
		*ts = now
	}
}

func elapsed(since, now time.Time) time.Duration {
	if d := now.Sub(since); d > 0 {
		return d
	}
	return 0
}
