// Package model contains domain models passed between layers.
package model

import "time"

// Box is a face bounding box in pixel coordinates.
type Box struct {
	X, Y, W, H int
}

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 {
	return float64(b.X) + float64(b.W)/2
}

// Incident is one logged proctoring event, as handed to the event sink.
type Incident struct {
	ID          int64     // store row id, zero until persisted
	CandidateID string    // candidate the event belongs to
	Label       string    // event label, e.g. "no_face_detected", "cell phone"
	Deduction   float64   // integrity points deducted for this log entry
	At          time.Time // when the event was logged
}

// Candidate is a proctored exam taker.
type Candidate struct {
	ID             string
	Name           string
	IntegrityScore float64
	StartedAt      time.Time
	EndedAt        *time.Time
}
