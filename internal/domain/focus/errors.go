package focus

import "errors"

// Sentinel kinds for focus engine errors.
var (
	// ErrRecognitionUnavailable means the provider could not process the frame.
	// The frame is skipped and the candidate's state is left untouched.
	ErrRecognitionUnavailable = errors.New("recognition unavailable")
	ErrEmptyCandidate         = errors.New("candidate id is required")
)
