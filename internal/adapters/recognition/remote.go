// Package recognition provides face and object detectors for gray frames.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
)

// DefaultDetectorTimeout bounds a single face detector call.
const DefaultDetectorTimeout = 2 * time.Second

// maxResponseBytes caps how much of a detector reply is read.
const maxResponseBytes = 1 << 20

// RemoteFaceDetector posts PNG-encoded frames to an HTTP face detection service.
//
// The service answers {"faces":[{"x":..,"y":..,"w":..,"h":..}]} in frame pixels.
type RemoteFaceDetector struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// RemoteOption configures a RemoteFaceDetector.
type RemoteOption func(*RemoteFaceDetector)

// WithHTTPClient sets the HTTP client used for detector calls.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(d *RemoteFaceDetector) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(t time.Duration) RemoteOption {
	return func(d *RemoteFaceDetector) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithDetectorLogger sets a custom logger.
func WithDetectorLogger(l logger.Logger) RemoteOption {
	return func(d *RemoteFaceDetector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewRemoteFaceDetector creates a detector for url. An empty url yields a
// detector that always reports ErrDetectorNotConfigured.
func NewRemoteFaceDetector(url string, opts ...RemoteOption) *RemoteFaceDetector {
	d := &RemoteFaceDetector{
		url:     url,
		client:  http.DefaultClient,
		timeout: DefaultDetectorTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("face_detector")
	}
	return d
}

type faceBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type faceResponse struct {
	Faces []faceBox `json:"faces"`
}

// DetectFaces returns the face boxes found in gray.
func (d *RemoteFaceDetector) DetectFaces(ctx context.Context, gray *image.Gray) ([]model.Box, error) {
	if d.url == "" {
		return nil, ErrDetectorNotConfigured
	}

	var body bytes.Buffer
	if err := imaging.Encode(&body, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode frame: %w", ErrDetectorRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorRequest, err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrDetectorStatus, resp.StatusCode)
	}

	var out faceResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectorResponse, err)
	}

	faces := make([]model.Box, 0, len(out.Faces))
	for _, f := range out.Faces {
		if f.W <= 0 || f.H <= 0 {
			continue
		}
		faces = append(faces, model.Box{X: f.X, Y: f.Y, W: f.W, H: f.H})
	}
	d.logger.Debug(ctx, "faces detected",
		logger.Int("count", len(faces)),
		logger.Duration("latency", time.Since(start)),
	)
	return faces, nil
}
