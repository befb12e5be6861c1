package framesim

import "errors"

// Error constants.
var (
	ErrUnhealthy   = errors.New("service unhealthy")
	ErrStatus      = errors.New("unexpected status")
	ErrRateLimited = errors.New("frame rate limited")
)
