package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/internal/domain/types"
)

// maxFormBytes caps non-frame request bodies.
const maxFormBytes = 1 << 20

// formRequest is the union of fields the form endpoints accept, either as
// form values or as a JSON body.
type formRequest struct {
	CandidateID string   `json:"candidate_id"`
	Name        string   `json:"name"`
	Events      []string `json:"events"`
}

// readForm parses a JSON body or form values. In form encoding, events is a
// JSON array carried as a string.
func readForm(w http.ResponseWriter, r *http.Request) (formRequest, error) {
	var req formRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if err := r.ParseMultipartForm(maxFormBytes); err != nil {
				return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
			}
		}
		req.CandidateID = r.FormValue("candidate_id")
		req.Name = r.FormValue("name")
		if raw := trimmed(r.FormValue("events")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Events); err != nil {
				return req, fmt.Errorf("%w: events must be a JSON array of strings: %w", ErrBadRequest, err)
			}
		}
	}
	req.CandidateID = trimmed(req.CandidateID)
	req.Name = trimmed(req.Name)
	return req, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func candidateView(c model.Candidate) types.CandidateView {
	return types.CandidateView{
		ID:             c.ID,
		Name:           c.Name,
		IntegrityScore: c.IntegrityScore,
		StartTime:      c.StartedAt,
		EndTime:        c.EndedAt,
	}
}

func candidateViews(cs []model.Candidate) []types.CandidateView {
	out := make([]types.CandidateView, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateView(c))
	}
	return out
}

func trimmed(s string) string { return strings.TrimSpace(s) }
