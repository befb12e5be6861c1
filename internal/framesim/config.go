// Package framesim drives a running proctorwatch server with synthetic
// webcam frames and client-side events.
package framesim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Candidates int           // Number of candidates to register
	Frames     int           // Frames sent per candidate
	Interval   time.Duration // Pause between frames of one candidate
	Workers    int           // Candidates simulated concurrently
	Timeout    time.Duration // HTTP request timeout
	Width      int           // Frame width in pixels
	Height     int           // Frame height in pixels
	Seed       uint64        // Seed for scene selection
	Verbose    bool          // Log every frame
}

// Candidate mirrors the service's candidate view.
type Candidate struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	IntegrityScore float64 `json:"integrity_score"`
	EndTime        *string `json:"end_time"`
}

// AnalysisResult mirrors the service's frame analysis response.
type AnalysisResult struct {
	Focused  bool     `json:"focused"`
	Events   []string `json:"events"`
	Score    float64  `json:"score"`
	Degraded bool     `json:"degraded"`
}

// Stats holds run statistics. Counters are updated atomically by the runner.
type Stats struct {
	CandidatesCreated int64
	FramesSent        int64
	FramesAnalyzed    int64
	FramesDegraded    int64
	FramesRateLimited int64
	FramesFailed      int64
	EventsReported    int64
	EventsLogged      int64
	SessionsEnded     int64
	ReportsWritten    int64
	StartTime         time.Time
	Duration          time.Duration
}
