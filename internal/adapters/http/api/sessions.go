package api

import (
	"net/http"
	"time"
)

// SessionsHandler ends candidate sessions.
type SessionsHandler struct {
	deps    SessionDependencies
	limiter *FrameLimiter
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies, limiter *FrameLimiter) *SessionsHandler {
	return &SessionsHandler{deps: deps, limiter: limiter}
}

type endSessionResponse struct {
	Status      string     `json:"status"`
	CandidateID string     `json:"candidate_id"`
	EndTime     *time.Time `json:"end_time"`
}

// HandleEndSession handles POST /end-session with a candidate_id field.
func (h *SessionsHandler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.end_session"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	req, err := readForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.CandidateID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrMissingCandidate))
		return
	}

	c, err := h.deps.EndSession(r.Context(), req.CandidateID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.limiter.Forget(req.CandidateID)
	writeJSON(w, http.StatusOK, endSessionResponse{Status: "success", CandidateID: c.ID, EndTime: c.EndedAt})
}
