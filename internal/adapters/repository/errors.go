package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("candidate not found")
	ErrInvalidName   = errors.New("candidate name is required")
	ErrInvalidPath   = errors.New("storage path is required")
	ErrNotConfigured = errors.New("storage is not configured")
	ErrInvalidLabel  = errors.New("event label is required")
)
