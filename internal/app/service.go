// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/benbjohnson/clock"

	eventqueue "github.com/okian/proctorwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/proctorwatch/internal/adapters/mq/worker"
	"github.com/okian/proctorwatch/internal/adapters/recognition"
	"github.com/okian/proctorwatch/internal/adapters/report"
	"github.com/okian/proctorwatch/internal/adapters/repository"
	"github.com/okian/proctorwatch/internal/config"
	"github.com/okian/proctorwatch/internal/domain/focus"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/internal/domain/scoring"
	"github.com/okian/proctorwatch/internal/domain/session"
	"github.com/okian/proctorwatch/internal/domain/types"
	"github.com/okian/proctorwatch/pkg/logger"
	"github.com/okian/proctorwatch/pkg/metrics"
)

// Service implements the API dependencies for the proctoring monitor.
type Service struct {
	mu sync.RWMutex

	cfg   *config.Config
	clock clock.Clock

	// Core components
	recognizer focus.Recognizer
	calculator *scoring.Calculator
	registry   *session.Registry
	engine     *focus.Engine
	store      repository.Store
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	reports    *report.Generator

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used by the engine and the store.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecognizer replaces the recognizer built from configuration.
func WithRecognizer(r focus.Recognizer) Option {
	return func(s *Service) {
		s.recognizer = r
	}
}

// New constructs a new Service. A nil cfg uses config defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:   cfg,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting proctoring service...")

	table, err := scoring.NewDeductionTable(s.cfg.Deductions)
	if err != nil {
		return fmt.Errorf("deduction table: %w", err)
	}
	s.calculator = scoring.NewCalculator(table, scoring.WithMaxScore(s.cfg.MaxScore))
	s.registry = session.NewRegistry(session.WithCooldown(config.Seconds(s.cfg.EventCooldownSeconds)))
	if s.recognizer == nil {
		s.recognizer = s.newRecognizer(ctx, table)
	}

	store, err := repository.Open(ctx, s.cfg.DatabasePath,
		repository.WithClock(s.clock),
		repository.WithInitialScore(s.cfg.MaxScore),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	reports, err := report.NewGenerator(s.cfg.ReportDir, store)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("report generator: %w", err)
	}
	s.store = store
	s.reports = reports

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.SinkQueueSize))
	s.workerPool = workerpool.NewPool(s.cfg.SinkWorkerCount, s.eventQueue, frameJournal{store: s.store})
	// Workers outlive the start context so queued incidents drain on Stop.
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.engine = focus.NewEngine(s.registry, s.recognizer, s.calculator,
		focus.WithSink(newQueueSink(s.eventQueue, s.clock, s.logger)),
		focus.WithClock(s.clock),
		focus.WithNoFaceThreshold(config.Seconds(s.cfg.NoFaceThresholdSeconds)),
		focus.WithLookAwayThreshold(config.Seconds(s.cfg.LookAwayThresholdSeconds)),
		focus.WithGazeDeviationFraction(s.cfg.GazeDeviationFraction),
	)

	s.started = true
	s.logger.Info(ctx, "proctoring service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.eventQueue.Capacity()),
		logger.String("database", s.cfg.DatabasePath),
	)
	return nil
}

// newRecognizer builds the face detector and template matcher from config.
// A missing detector URL or template directory is logged, not fatal.
func (s *Service) newRecognizer(ctx context.Context, table *scoring.DeductionTable) focus.Recognizer {
	var faces recognition.FaceDetector
	if s.cfg.FaceDetectorURL != "" {
		faces = recognition.NewRemoteFaceDetector(s.cfg.FaceDetectorURL,
			recognition.WithTimeout(s.cfg.FaceDetectorTimeout()))
	} else {
		s.logger.Warn(ctx, "no face detector configured, frames will be answered degraded")
	}

	opts := []recognition.MatcherOption{recognition.WithThreshold(s.cfg.TemplateMatchThreshold)}
	matcher := recognition.NewTemplateMatcher(nil, opts...)
	if s.cfg.TemplateDir != "" {
		loaded, err := recognition.LoadTemplates(s.cfg.TemplateDir, opts...)
		if err != nil {
			s.logger.Warn(ctx, "object templates not loaded", logger.Error(err))
		} else {
			matcher = loaded
		}
	}
	if missing := table.Unweighted(matcher.Labels()); len(missing) > 0 {
		s.logger.Info(ctx, "object labels without a deduction score zero", logger.Any("labels", missing))
	}
	s.logger.Info(ctx, "recognition ready", logger.Any("objects", matcher.Labels()))
	return recognition.NewProvider(faces, matcher)
}

// Stop drains the event queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping proctoring service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "proctoring service stopped",
		logger.Int("persisted", int(s.workerPool.Processed())),
		logger.Int("failed", int(s.workerPool.Failed())),
	)
	return errors.Join(errs...)
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateCandidate registers a candidate with a full score.
func (s *Service) CreateCandidate(ctx context.Context, name string) (model.Candidate, error) {
	if err := s.ready(); err != nil {
		return model.Candidate{}, err
	}
	return s.store.CreateCandidate(ctx, name)
}

// ListCandidates returns the roster.
func (s *Service) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListCandidates(ctx)
}

// GetCandidate returns a registered candidate.
func (s *Service) GetCandidate(ctx context.Context, candidateID string) (model.Candidate, error) {
	if err := s.ready(); err != nil {
		return model.Candidate{}, err
	}
	return s.store.GetCandidate(ctx, candidateID)
}

// AnalyzeFrame runs the focus engine for a registered candidate and stores
// the frame score as the candidate's integrity score. A degraded result is
// returned without error and leaves the stored score alone.
func (s *Service) AnalyzeFrame(ctx context.Context, candidateID string, img image.Image) (types.AnalysisResult, error) {
	if err := s.ready(); err != nil {
		return types.AnalysisResult{}, err
	}
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		return types.AnalysisResult{}, err
	}

	res, err := s.engine.AnalyzeFrame(ctx, img, candidateID)
	if errors.Is(err, focus.ErrRecognitionUnavailable) {
		s.logger.Warn(ctx, "recognition unavailable",
			logger.String("candidate", candidateID), logger.Error(err))
		return res, nil
	}
	if err != nil {
		return types.AnalysisResult{}, err
	}

	if err := s.store.SetIntegrityScore(ctx, candidateID, res.Score); err != nil {
		s.logger.Error(ctx, "integrity score not stored",
			logger.String("candidate", candidateID), logger.Error(err))
		metrics.RecordStoreWriteError()
	}
	return res, nil
}

// LogEvents records client-side detections with their table deductions.
// Labels are normalized and blanks dropped; the recorded labels are returned.
func (s *Service) LogEvents(ctx context.Context, candidateID string, labels []string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}

	table := s.calculator.Table()
	recorded := make([]string, 0, len(labels))
	for _, raw := range labels {
		label := scoring.NormalizeLabel(raw)
		if label == "" {
			continue
		}
		inc := model.Incident{
			CandidateID: candidateID,
			Label:       label,
			Deduction:   table.Points(label),
			At:          s.clock.Now(),
		}
		if _, err := s.store.RecordIncident(ctx, inc); err != nil {
			return recorded, fmt.Errorf("log %q: %w", label, err)
		}
		metrics.RecordEventLogged(label)
		recorded = append(recorded, label)
	}
	s.logger.Info(ctx, "client events logged",
		logger.String("candidate", candidateID), logger.Any("events", recorded))
	return recorded, nil
}

// EndSession drops hysteresis state and stamps the candidate's end time.
func (s *Service) EndSession(ctx context.Context, candidateID string) (model.Candidate, error) {
	if err := s.ready(); err != nil {
		return model.Candidate{}, err
	}
	c, err := s.store.EndCandidate(ctx, candidateID)
	if err != nil {
		return model.Candidate{}, err
	}
	s.engine.EndSession(ctx, candidateID)
	return c, nil
}

// GenerateReport writes the candidate's CSV report and returns its path.
func (s *Service) GenerateReport(ctx context.Context, candidateID string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.reports.Generate(ctx, candidateID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	queueLen := s.eventQueue.Len()
	stats["activeSessions"] = s.registry.Len()
	stats["queueLength"] = queueLen
	stats["queueCapacity"] = s.eventQueue.Capacity()
	stats["workerCount"] = s.workerPool.Size()
	stats["incidentsPersisted"] = s.workerPool.Processed()
	stats["incidentsFailed"] = s.workerPool.Failed()
	if n, err := s.store.Count(context.Background()); err == nil {
		stats["totalCandidates"] = n
		metrics.UpdateTotalCandidates(n)
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateActiveSessions(s.registry.Len())
	metrics.UpdateWorkerCount(s.workerPool.Size())
	return stats
}
