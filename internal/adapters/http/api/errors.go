package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMissingCandidate = errors.New("missing candidate_id")
	ErrMissingFile      = errors.New("missing file")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrRateLimited      = errors.New("frame rate exceeded")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// WrapKind annotates err with the operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns a sentinel kind annotated with the operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
