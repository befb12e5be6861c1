// Package focus turns recognition results into attentiveness events and scores.
package focus

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/internal/domain/scoring"
	"github.com/okian/proctorwatch/internal/domain/session"
	"github.com/okian/proctorwatch/internal/domain/types"
	"github.com/okian/proctorwatch/pkg/frame"
	"github.com/okian/proctorwatch/pkg/logger"
	"github.com/okian/proctorwatch/pkg/metrics"
)

// Default hysteresis configuration.
const (
	DefaultNoFaceThreshold       = 10 * time.Second
	DefaultLookAwayThreshold     = 5 * time.Second
	DefaultGazeDeviationFraction = 0.25
)

// Recognizer supplies face boxes and object labels for a gray frame.
type Recognizer interface {
	DetectFaces(ctx context.Context, gray *image.Gray) ([]model.Box, error)
	DetectObjects(ctx context.Context, gray *image.Gray) ([]string, error)
}

// Sink receives events that passed the cooldown gate. It must not block.
type Sink interface {
	Record(ctx context.Context, candidateID, label string, deduction float64) error
}

type noopSink struct{}

func (noopSink) Record(context.Context, string, string, float64) error { return nil }

// Engine analyzes frames for many candidates. Frames of one candidate are
// applied in order; different candidates run in parallel.
type Engine struct {
	registry   *session.Registry
	recognizer Recognizer
	calculator *scoring.Calculator
	sink       Sink
	clock      clock.Clock
	logger     logger.Logger

	noFaceThreshold   time.Duration
	lookAwayThreshold time.Duration
	gazeFraction      float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSink sets the event sink.
func WithSink(sink Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNoFaceThreshold sets how long absence must last before it is an event.
func WithNoFaceThreshold(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.noFaceThreshold = d
		}
	}
}

// WithLookAwayThreshold sets how long gaze deviation must last before it is an event.
func WithLookAwayThreshold(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.lookAwayThreshold = d
		}
	}
}

// WithGazeDeviationFraction sets the centered band as a fraction of frame width.
func WithGazeDeviationFraction(f float64) Option {
	return func(e *Engine) {
		if f > 0 && f <= 0.5 {
			e.gazeFraction = f
		}
	}
}

// NewEngine creates an engine.
func NewEngine(registry *session.Registry, recognizer Recognizer, calculator *scoring.Calculator, opts ...Option) *Engine {
	e := &Engine{
		registry:          registry,
		recognizer:        recognizer,
		calculator:        calculator,
		sink:              noopSink{},
		clock:             clock.New(),
		noFaceThreshold:   DefaultNoFaceThreshold,
		lookAwayThreshold: DefaultLookAwayThreshold,
		gazeFraction:      DefaultGazeDeviationFraction,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("focus")
	}
	return e
}

// AnalyzeFrame runs detection on img and advances the candidate's session.
//
// On ErrRecognitionUnavailable the returned result is degraded (not focused,
// no events, full score) and the session is not touched.
func (e *Engine) AnalyzeFrame(ctx context.Context, img image.Image, candidateID string) (types.AnalysisResult, error) {
	if candidateID == "" {
		return types.AnalysisResult{}, ErrEmptyCandidate
	}
	start := e.clock.Now()

	gray := frame.Gray(img)
	var (
		faces   []model.Box
		objects []string
		err     error
	)
	// Both detections finish before any state changes so a failure leaves no partial update.
	if gray != nil {
		faces, err = e.recognizer.DetectFaces(ctx, gray)
		if err != nil {
			return e.degraded(ctx, candidateID, "faces", err)
		}
		objects, err = e.recognizer.DetectObjects(ctx, gray)
		if err != nil {
			return e.degraded(ctx, candidateID, "objects", err)
		}
	}

	now := e.clock.Now()
	width := 0
	if gray != nil {
		width = gray.Bounds().Dx()
	}

	var result types.AnalysisResult
	_ = e.registry.WithSession(candidateID, now, func(s *session.State) error {
		result = e.apply(ctx, s, now, width, faces, objects)
		return nil
	})
	metrics.UpdateActiveSessions(e.registry.Len())
	metrics.RecordFrameAnalyzed(float64(e.clock.Since(start).Milliseconds()), result.Score)

	e.logger.Debug(ctx, "frame analyzed",
		logger.String("candidate", candidateID),
		logger.Int("faces", len(faces)),
		logger.Bool("focused", result.Focused),
		logger.Any("events", result.Events),
		logger.Float64("score", result.Score),
	)
	return result, nil
}

// EndSession drops the candidate's hysteresis state.
func (e *Engine) EndSession(ctx context.Context, candidateID string) bool {
	ended := e.registry.End(candidateID)
	metrics.UpdateActiveSessions(e.registry.Len())
	if ended {
		e.logger.Info(ctx, "session ended", logger.String("candidate", candidateID))
	}
	return ended
}

func (e *Engine) degraded(ctx context.Context, candidateID, stage string, err error) (types.AnalysisResult, error) {
	metrics.RecordRecognitionFailure(stage)
	metrics.RecordFrameDegraded()
	e.logger.Warn(ctx, "recognition failed; frame skipped",
		logger.String("candidate", candidateID),
		logger.String("stage", stage),
		logger.Error(err),
	)
	res := types.AnalysisResult{
		Focused:  false,
		Events:   []string{},
		Score:    e.calculator.MaxScore(),
		Degraded: true,
	}
	return res, fmt.Errorf("%w: %s: %w", ErrRecognitionUnavailable, stage, err)
}

// apply runs the hysteresis rules for one frame. Caller holds s.
func (e *Engine) apply(ctx context.Context, s *session.State, now time.Time, width int, faces []model.Box, objects []string) types.AnalysisResult {
	res := types.AnalysisResult{Focused: true, Events: []string{}}
	gate := s.Gate()
	raise := func(label string, unfocus bool) {
		if unfocus {
			res.Focused = false
		}
		res.Events = append(res.Events, label)
		e.emit(ctx, s, label, now)
	}

	// Absence must persist for the threshold; any face resets it.
	if len(faces) == 0 {
		if s.AbsentFor(now) >= e.noFaceThreshold {
			raise(scoring.LabelNoFace, true)
		}
	} else {
		s.FacePresent(now)
		gate.Clear(scoring.LabelNoFace)
	}

	if len(faces) > 1 {
		raise(scoring.LabelMultipleFaces, true)
	} else {
		gate.Clear(scoring.LabelMultipleFaces)
	}

	if len(faces) == 1 {
		dx := math.Abs(faces[0].CenterX() - float64(width)/2)
		if dx > e.gazeFraction*float64(width) {
			if s.LookingAwayFor(now) >= e.lookAwayThreshold {
				raise(scoring.LabelLookingAway, true)
			}
		} else {
			s.LookingAtScreen(now)
			gate.Clear(scoring.LabelLookingAway)
		}
	}

	// Object events count toward the score but leave focus alone.
	present := normalizeLabels(objects)
	for _, label := range present {
		raise(label, false)
	}
	for _, label := range gate.Cooling() {
		if scoring.IsCondition(label) {
			continue
		}
		if !contains(present, label) {
			gate.Clear(label)
		}
	}

	s.MarkFrame()
	res.Score = e.calculator.Score(res.Events)
	return res
}

// emit hands label to the sink when the cooldown gate allows it. Sink errors
// are logged and dropped.
func (e *Engine) emit(ctx context.Context, s *session.State, label string, now time.Time) {
	metrics.RecordEventDetected(label)
	if !s.Gate().ShouldEmit(label, now) {
		metrics.RecordEventSuppressed(label)
		return
	}
	metrics.RecordEventLogged(label)
	deduction := e.calculator.Table().Points(label)
	if err := e.sink.Record(ctx, s.CandidateID(), label, deduction); err != nil {
		e.logger.Warn(ctx, "event sink failed",
			logger.String("candidate", s.CandidateID()),
			logger.String("label", label),
			logger.Error(err),
		)
	}
}

// normalizeLabels lower-cases, trims, drops empties and duplicates, and sorts.
func normalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		key := scoring.NormalizeLabel(l)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func contains(sorted []string, label string) bool {
	i := sort.SearchStrings(sorted, label)
	return i < len(sorted) && sorted[i] == label
}
