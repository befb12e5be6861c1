package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull = errors.New("incident queue full")
	ErrClosed    = errors.New("incident queue closed")
)
