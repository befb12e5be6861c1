package recognition

import "errors"

// Sentinel kinds for recognition errors.
var (
	ErrDetectorNotConfigured = errors.New("face detector url not configured")
	ErrDetectorRequest       = errors.New("face detector request failed")
	ErrDetectorStatus        = errors.New("face detector returned non-2xx status")
	ErrDetectorResponse      = errors.New("face detector response malformed")
	ErrTemplateDir           = errors.New("template directory unreadable")
	ErrTemplateImage         = errors.New("template image unreadable")
)
