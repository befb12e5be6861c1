package framesim

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultCandidates = 4
	DefaultFrames     = 30
	DefaultInterval   = 250 * time.Millisecond
	DefaultTimeout    = 10 * time.Second
	DefaultWidth      = 320
	DefaultHeight     = 240
)

// Client-side event labels the simulator reports through /log-events.
var clientLabels = []string{"cell phone", "book", "laptop", "headphones"}

// eventEvery is how many frames pass between client-side event reports.
const eventEvery = 10
