package api

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdle is how long an untouched bucket is kept.
const DefaultLimiterIdle = time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// FrameLimiter throttles frames per candidate with a token bucket each.
// Buckets idle for longer than the idle window are swept on later calls.
type FrameLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	clock     clock.Clock
	lastSweep time.Time
	buckets   map[string]*bucket
}

// LimiterOption applies a configuration option to the FrameLimiter.
type LimiterOption func(*FrameLimiter)

// WithIdleWindow sets how long an untouched bucket is kept.
func WithIdleWindow(d time.Duration) LimiterOption {
	return func(l *FrameLimiter) {
		if d > 0 {
			l.idle = d
		}
	}
}

// WithLimiterClock sets the clock used for refills and eviction.
func WithLimiterClock(c clock.Clock) LimiterOption {
	return func(l *FrameLimiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// NewFrameLimiter allows perSecond frames with the given burst. A
// non-positive rate disables limiting.
func NewFrameLimiter(perSecond float64, burst int, opts ...LimiterOption) *FrameLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	l := &FrameLimiter{
		limit:   limit,
		burst:   burst,
		idle:    DefaultLimiterIdle,
		clock:   clock.New(),
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.clock.Now()
	return l
}

// Allow reports whether a frame for candidateID may be processed now.
// Callers should only pass ids of registered candidates.
func (l *FrameLimiter) Allow(candidateID string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	b, ok := l.buckets[candidateID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[candidateID] = b
	}
	b.seen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

func (l *FrameLimiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}

// Forget drops the candidate's bucket.
func (l *FrameLimiter) Forget(candidateID string) {
	l.mu.Lock()
	delete(l.buckets, candidateID)
	l.mu.Unlock()
}

// Len returns the number of tracked candidates.
func (l *FrameLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
