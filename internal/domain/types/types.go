// Package types contains common types used across the application
package types

import "time"

// AnalysisResult is the per-frame outcome of the focus engine.
type AnalysisResult struct {
	Focused  bool     `json:"focused"`
	Events   []string `json:"events"`
	Score    float64  `json:"score"`
	Degraded bool     `json:"degraded,omitempty"`
}

// CandidateView is the API shape of a candidate.
type CandidateView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	IntegrityScore float64    `json:"integrity_score"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
}
