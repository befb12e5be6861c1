package framesim

import (
	"os"
	"runtime"
)

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Candidates <= 0 {
		c.Candidates = DefaultCandidates
	}
	if c.Frames <= 0 {
		c.Frames = DefaultFrames
	}
	if c.Interval < 0 {
		c.Interval = DefaultInterval
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
}

// ShowHelp prints usage information for the frame simulator.
func ShowHelp() {
	os.Stdout.WriteString(`proctorwatch frame simulator
============================

Registers candidates, streams synthetic webcam frames for each of them,
reports client-side object events, ends every session and writes reports.

Usage:
  go run ./cmd/framesim [options]

Options:
  -url string        Base URL of the service (default "http://localhost:8000")
  -candidates int    Number of candidates to simulate (default 4)
  -frames int        Frames per candidate (default 30)
  -interval duration Pause between frames of one candidate (default 250ms)
  -workers int       Candidates simulated concurrently (default CPU cores)
  -timeout duration  HTTP request timeout (default 10s)
  -seed uint         Scene seed (default: time based)
  -verbose           Log every frame
  -help              Show this help message

Examples:
  go run ./cmd/framesim -candidates 20 -frames 100 -interval 100ms
`)
}
