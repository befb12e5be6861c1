package framesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// maxBody bounds response bodies read by the client.
const maxBody = 1 << 20

// HTTPClient talks to the service API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client with the given request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that /healthz answers 200.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// CreateCandidate registers a candidate by name.
func (c *HTTPClient) CreateCandidate(ctx context.Context, name string) (Candidate, error) {
	var out Candidate
	err := c.postForm(ctx, "/candidates", url.Values{"name": {name}}, http.StatusCreated, &out)
	return out, err
}

// ListCandidates returns the roster.
func (c *HTTPClient) ListCandidates(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	err := c.get(ctx, "/candidates", &out)
	return out, err
}

// AnalyzeFrame uploads img as a JPEG for candidateID.
func (c *HTTPClient) AnalyzeFrame(ctx context.Context, candidateID string, img image.Image) (AnalysisResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("candidate_id", candidateID); err != nil {
		return AnalysisResult{}, err
	}
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return AnalysisResult{}, err
	}
	if err := imaging.Encode(fw, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return AnalysisResult{}, fmt.Errorf("encode frame: %w", err)
	}
	if err := mw.Close(); err != nil {
		return AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-frame", &body)
	if err != nil {
		return AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out AnalysisResult
	err = c.do(req, http.StatusOK, &out)
	return out, err
}

// LogEvents reports client-side detections.
func (c *HTTPClient) LogEvents(ctx context.Context, candidateID string, labels []string) error {
	events, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	return c.postForm(ctx, "/log-events",
		url.Values{"candidate_id": {candidateID}, "events": {string(events)}}, http.StatusAccepted, nil)
}

// EndSession closes the candidate's session.
func (c *HTTPClient) EndSession(ctx context.Context, candidateID string) error {
	return c.postForm(ctx, "/end-session", url.Values{"candidate_id": {candidateID}}, http.StatusOK, nil)
}

// Report asks the service to write the candidate's CSV report.
func (c *HTTPClient) Report(ctx context.Context, candidateID string) (string, error) {
	var out struct {
		ReportPath string `json:"report_path"`
	}
	err := c.get(ctx, "/report?candidate_id="+url.QueryEscape(candidateID), &out)
	return out.ReportPath, err
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out)
}

func (c *HTTPClient) postForm(ctx context.Context, path string, form url.Values, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, want, out)
}

func (c *HTTPClient) do(req *http.Request, want int, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s: %d %s", ErrStatus, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
