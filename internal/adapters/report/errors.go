package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrNoDirectory = errors.New("report directory is required")
)
