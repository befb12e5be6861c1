// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file and env on top.
// - Validation is declared with struct tags and checked by Validate.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr" validate:"required"`

	// DatabasePath is the SQLite file holding candidates and events.
	DatabasePath string `koanf:"database_path" validate:"required"`

	// ReportDir receives generated CSV reports.
	ReportDir string `koanf:"report_dir" validate:"required"`

	// TemplateDir holds object templates; the file stem is the label.
	TemplateDir string `koanf:"template_dir"`

	// FaceDetectorURL is the endpoint of the remote face detector.
	FaceDetectorURL string `koanf:"face_detector_url" validate:"omitempty,url"`

	// FaceDetectorTimeoutMS bounds one face detection call.
	FaceDetectorTimeoutMS int `koanf:"face_detector_timeout_ms" validate:"gt=0"`

	// MaxFrameBytes caps an uploaded frame.
	MaxFrameBytes int64 `koanf:"max_frame_bytes" validate:"gt=0"`

	// FramesPerSecond and FrameBurst bound per-candidate frame submissions.
	FramesPerSecond float64 `koanf:"frames_per_second" validate:"gt=0"`
	FrameBurst      int     `koanf:"frame_burst" validate:"gt=0"`

	// SinkQueueSize bounds the in-memory event sink queue.
	SinkQueueSize int `koanf:"sink_queue_size" validate:"gt=0"`

	// SinkWorkerCount sets the number of workers persisting events.
	SinkWorkerCount int `koanf:"sink_worker_count" validate:"gt=0"`

	// Scoring and hysteresis tunables.
	MaxScore                 float64 `koanf:"max_score" validate:"gt=0"`
	EventCooldownSeconds     float64 `koanf:"event_cooldown_seconds" validate:"gte=0"`
	NoFaceThresholdSeconds   float64 `koanf:"no_face_threshold_seconds" validate:"gte=0"`
	LookAwayThresholdSeconds float64 `koanf:"look_away_threshold_seconds" validate:"gte=0"`
	GazeDeviationFraction    float64 `koanf:"gaze_deviation_fraction" validate:"gt=0,lte=0.5"`
	TemplateMatchThreshold   float64 `koanf:"template_match_threshold" validate:"gt=0,lte=1"`

	// Deductions maps event labels to integrity point deductions.
	Deductions map[string]float64 `koanf:"deductions" validate:"dive,gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":8000",
		DatabasePath:             "logs/events.db",
		ReportDir:                "logs",
		TemplateDir:              "templates",
		FaceDetectorTimeoutMS:    2000,
		MaxFrameBytes:            8 << 20,
		FramesPerSecond:          5,
		FrameBurst:               10,
		SinkQueueSize:            10_000,
		SinkWorkerCount:          runtime.NumCPU(),
		MaxScore:                 100,
		EventCooldownSeconds:     5,
		NoFaceThresholdSeconds:   10,
		LookAwayThresholdSeconds: 5,
		GazeDeviationFraction:    0.25,
		TemplateMatchThreshold:   0.6,
		Deductions: map[string]float64{
			"no_face_detected":                10,
			"candidate_not_looking_at_screen": 5,
			"multiple_faces_detected":         15,
			"cell phone":                      20,
			"book":                            5,
			"laptop":                          5,
			"keyboard":                        5,
			"mouse":                           5,
			"tv":                              5,
			"remote":                          5,
		},
	}
}
