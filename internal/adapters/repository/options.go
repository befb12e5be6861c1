package repository

import (
	"github.com/benbjohnson/clock"

	"github.com/okian/proctorwatch/pkg/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the time source for start, end and event timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *SQLiteStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInitialScore sets the integrity score new candidates start with.
func WithInitialScore(score float64) Option {
	return func(s *SQLiteStore) {
		if score > 0 {
			s.initialScore = score
		}
	}
}

// WithIDGenerator overrides how candidate ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *SQLiteStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}
