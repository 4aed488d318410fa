package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// FaceProvider is the black-box detection/embedding model boundary. The core
// only needs two capabilities: locate faces in a frame, and turn one face
// region into a fixed-length probe vector.
type FaceProvider interface {
	// DetectFaces finds face regions in a JPEG frame.
	DetectFaces(ctx context.Context, frame []byte) ([]DetectedFace, error)

	// Embed extracts the embedding for one detected region of the frame.
	Embed(ctx context.Context, frame []byte, box domain.BoundingBox) ([]float32, error)
}

// DetectedFace represents a detected face in the frame
type DetectedFace struct {
	BoundingBox  domain.BoundingBox `json:"bounding_box"`
	Confidence   float64            `json:"confidence"`
	QualityScore float64            `json:"quality_score"`
}
