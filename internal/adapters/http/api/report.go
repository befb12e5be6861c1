package api

import (
	"net/http"
)

// ReportHandler handles report generation.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleReport handles GET /report?candidate_id=.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.report"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	candidateID := trimmed(r.URL.Query().Get("candidate_id"))
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrMissingCandidate))
		return
	}
	path, err := h.deps.GenerateReport(r.Context(), candidateID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{ReportPath: path})
}
