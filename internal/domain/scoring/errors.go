package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidDeduction = errors.New("invalid deduction")
)
