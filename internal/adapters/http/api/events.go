package api

import (
	"net/http"
)

// EventsHandler handles client-side event logging.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleLogEvents handles POST /log-events with candidate_id and an events
// array of labels.
func (h *EventsHandler) HandleLogEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.log_events"
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

	logged, err := h.deps.LogEvents(r.Context(), req.CandidateID, req.Events)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "success", CandidateID: req.CandidateID, Events: logged})
}
