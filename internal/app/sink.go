package service

import (
	"context"

	"github.com/benbjohnson/clock"

	eventqueue "github.com/okian/proctorwatch/internal/adapters/mq/queue"
	"github.com/okian/proctorwatch/internal/adapters/repository"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
	"github.com/okian/proctorwatch/pkg/metrics"
)

// queueSink hands engine events to the worker pool without blocking the frame.
type queueSink struct {
	queue  eventqueue.Queue
	clock  clock.Clock
	logger logger.Logger
}

func newQueueSink(q eventqueue.Queue, c clock.Clock, l logger.Logger) *queueSink {
	return &queueSink{queue: q, clock: c, logger: l}
}

// Record enqueues an incident stamped with the current time. A full or closed
// queue drops the incident.
func (s *queueSink) Record(ctx context.Context, candidateID, label string, deduction float64) error {
	err := s.queue.Enqueue(ctx, model.Incident{
		CandidateID: candidateID,
		Label:       label,
		Deduction:   deduction,
		At:          s.clock.Now(),
	})
	if err != nil {
		metrics.RecordSinkDropped()
		s.logger.Warn(ctx, "incident dropped",
			logger.String("candidate", candidateID),
			logger.String("label", label),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// frameJournal persists engine incidents as audit rows. The frame score
// already accounts for them, so the stored score is not decremented.
type frameJournal struct {
	store repository.Store
}

func (j frameJournal) RecordIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	return j.store.AppendIncident(ctx, inc)
}
