package api

import (
	"errors"
	"net/http"

	"github.com/okian/proctorwatch/pkg/frame"
	"github.com/okian/proctorwatch/pkg/logger"
	"github.com/okian/proctorwatch/pkg/metrics"
)

// FramesHandler handles frame uploads.
type FramesHandler struct {
	deps     FrameDependencies
	limiter  *FrameLimiter
	maxBytes int64
	logger   logger.Logger
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies, limiter *FrameLimiter, maxBytes int64, l logger.Logger) *FramesHandler {
	return &FramesHandler{deps: deps, limiter: limiter, maxBytes: maxBytes, logger: l}
}

// HandleAnalyzeFrame handles POST /analyze-frame multipart uploads with a
// file part and a candidate_id field.
func (h *FramesHandler) HandleAnalyzeFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze_frame"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "frame_too_large", WrapKind(op, ErrFrameTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	candidateID := trimmed(r.FormValue("candidate_id"))
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrMissingCandidate))
		return
	}
	// Unknown ids must never reach the limiter.
	if _, err := h.deps.GetCandidate(r.Context(), candidateID); err != nil {
		writeDomainError(w, err)
		return
	}
	if !h.limiter.Allow(candidateID) {
		metrics.RecordFrameRateLimited()
		writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrRateLimited))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrMissingFile, err))
		return
	}
	defer func() { _ = file.Close() }()

	img, err := frame.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.AnalyzeFrame(r.Context(), candidateID, img)
	if err != nil {
		h.logger.Debug(r.Context(), "frame rejected", logger.String("candidate", candidateID), logger.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
