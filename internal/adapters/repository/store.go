// Package repository persists candidates and their logged incidents.
package repository

import (
	"context"

	"github.com/okian/proctorwatch/internal/domain/model"
)

// Store provides read/write access to candidates and incidents.
type Store interface {
	// CreateCandidate registers a candidate with a fresh id and the initial score.
	CreateCandidate(ctx context.Context, name string) (model.Candidate, error)

	// GetCandidate returns ErrNotFound if the candidate is unknown.
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)

	// ListCandidates returns all candidates ordered by start time.
	ListCandidates(ctx context.Context) ([]model.Candidate, error)

	// RecordIncident appends an incident and subtracts its deduction from the
	// candidate's stored score, never below zero.
	RecordIncident(ctx context.Context, inc model.Incident) (model.Incident, error)

	// AppendIncident appends an incident without touching the stored score.
	AppendIncident(ctx context.Context, inc model.Incident) (model.Incident, error)

	// SetIntegrityScore overwrites the candidate's stored score.
	SetIntegrityScore(ctx context.Context, id string, score float64) error

	// EndCandidate stamps the session end time. Ending twice moves the stamp.
	EndCandidate(ctx context.Context, id string) (model.Candidate, error)

	// ListIncidents returns the candidate's incidents in insertion order.
	ListIncidents(ctx context.Context, id string) ([]model.Incident, error)

	// Count returns the number of registered candidates.
	Count(ctx context.Context) (int, error)

	Close() error
}
