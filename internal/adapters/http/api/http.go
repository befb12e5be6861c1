// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"

	"github.com/okian/proctorwatch/internal/adapters/repository"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/internal/domain/types"
	"github.com/okian/proctorwatch/pkg/frame"
	"github.com/okian/proctorwatch/pkg/logger"
)

// Default request limits.
const (
	DefaultMaxFrameBytes   = 8 << 20
	DefaultFramesPerSecond = 5
	DefaultFrameBurst      = 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CandidateDependencies
	FrameDependencies
	EventDependencies
	SessionDependencies
	ReportDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	candidatesHandler *CandidatesHandler
	framesHandler     *FramesHandler
	eventsHandler     *EventsHandler
	sessionsHandler   *SessionsHandler
	reportHandler     *ReportHandler

	maxFrameBytes int64
	fps           float64
	burst         int
	logger        logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxFrameBytes caps the size of an uploaded frame request.
func WithMaxFrameBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxFrameBytes = n
		}
	}
}

// WithFrameRate sets the per-candidate frame rate limit. A non-positive rate
// disables limiting.
func WithFrameRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.fps = perSecond
		if burst > 0 {
			s.burst = burst
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxFrameBytes: DefaultMaxFrameBytes,
		fps:           DefaultFramesPerSecond,
		burst:         DefaultFrameBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	limiter := NewFrameLimiter(s.fps, s.burst)
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.candidatesHandler = NewCandidatesHandler(deps)
	s.framesHandler = NewFramesHandler(deps, limiter, s.maxFrameBytes, s.logger)
	s.eventsHandler = NewEventsHandler(deps)
	s.sessionsHandler = NewSessionsHandler(deps, limiter)
	s.reportHandler = NewReportHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.candidatesHandler.HandleCandidates, "candidates"))
	mux.HandleFunc("/analyze-frame", MetricsMiddleware(s.framesHandler.HandleAnalyzeFrame, "analyze_frame"))
	mux.HandleFunc("/log-events", MetricsMiddleware(s.eventsHandler.HandleLogEvents, "log_events"))
	mux.HandleFunc("/end-session", MetricsMiddleware(s.sessionsHandler.HandleEndSession, "end_session"))
	mux.HandleFunc("/report", MetricsMiddleware(s.reportHandler.HandleReport, "report"))

	// Paths kept for existing browser clients.
	mux.HandleFunc("/add-candidate", MetricsMiddleware(s.candidatesHandler.HandleCreate, "candidates"))
	mux.HandleFunc("/generate-report", MetricsMiddleware(s.reportHandler.HandleReport, "report"))
}

type statusResponse struct {
	Status      string   `json:"status"`
	CandidateID string   `json:"candidate_id"`
	Events      []string `json:"events,omitempty"`
}

type reportResponse struct {
	ReportPath string `json:"report_path"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps upstream errors onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err)
	case errors.As(err, &tooLarge), errors.Is(err, ErrFrameTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "frame_too_large", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, frame.ErrDecode),
		errors.Is(err, repository.ErrInvalidName),
		errors.Is(err, repository.ErrInvalidLabel):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// CandidateDependencies manage the candidate roster.
type CandidateDependencies interface {
	CreateCandidate(ctx context.Context, name string) (model.Candidate, error)
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
}

// FrameDependencies analyze uploaded frames.
type FrameDependencies interface {
	GetCandidate(ctx context.Context, candidateID string) (model.Candidate, error)
	AnalyzeFrame(ctx context.Context, candidateID string, img image.Image) (types.AnalysisResult, error)
}

// EventDependencies log client-side detections.
type EventDependencies interface {
	LogEvents(ctx context.Context, candidateID string, labels []string) ([]string, error)
}

// SessionDependencies end candidate sessions.
type SessionDependencies interface {
	EndSession(ctx context.Context, candidateID string) (model.Candidate, error)
}

// ReportDependencies render audit reports.
type ReportDependencies interface {
	GenerateReport(ctx context.Context, candidateID string) (string, error)
}
