package recognition

import (
	"context"
	"image"

	"github.com/okian/proctorwatch/internal/domain/model"
)

// FaceDetector finds faces in a gray frame.
type FaceDetector interface {
	DetectFaces(ctx context.Context, gray *image.Gray) ([]model.Box, error)
}

// ObjectDetector labels objects in a gray frame.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, gray *image.Gray) ([]string, error)
}

// Provider joins a face detector and an object detector. A missing object
// detector reports no objects.
type Provider struct {
	faces   FaceDetector
	objects ObjectDetector
}

// NewProvider creates a Provider.
func NewProvider(faces FaceDetector, objects ObjectDetector) *Provider {
	return &Provider{faces: faces, objects: objects}
}

// DetectFaces delegates to the face detector.
func (p *Provider) DetectFaces(ctx context.Context, gray *image.Gray) ([]model.Box, error) {
	if p.faces == nil {
		return nil, ErrDetectorNotConfigured
	}
	return p.faces.DetectFaces(ctx, gray)
}

// DetectObjects delegates to the object detector.
func (p *Provider) DetectObjects(ctx context.Context, gray *image.Gray) ([]string, error) {
	if p.objects == nil {
		return nil, nil
	}
	return p.objects.DetectObjects(ctx, gray)
}
