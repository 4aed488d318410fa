package insight

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

// Provider implements provider.FaceProvider against an insightface-rest
// sidecar, the same model family the enrollment templates were built with.
type Provider struct {
	client *Client
}

// Ensure Provider implements provider.FaceProvider interface at compile time
var _ provider.FaceProvider = (*Provider)(nil)

func NewProvider(config Config) *Provider {
	return &Provider{client: NewClient(config)}
}

func (p *Provider) DetectFaces(ctx context.Context, frame []byte) ([]provider.DetectedFace, error) {
	resp, err := p.client.Extract(ctx, frame, false)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrInvalidResponse
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Data[0].Faces))
	for _, f := range resp.Data[0].Faces {
		faces = append(faces, provider.DetectedFace{
			BoundingBox:  bboxToDomain(f.Bbox),
			Confidence:   f.Prob,
			QualityScore: f.Prob,
		})
	}

	return faces, nil
}

// Embed re-runs extraction with embeddings enabled and returns the vector of
// the face whose region best overlaps the requested box.
func (p *Provider) Embed(ctx context.Context, frame []byte, box domain.BoundingBox) ([]float32, error) {
	resp, err := p.client.Extract(ctx, frame, true)
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Faces) == 0 {
		return nil, ErrNoFaceInResponse
	}

	best := -1
	bestOverlap := 0
	for i, f := range resp.Data[0].Faces {
		if len(f.Vec) == 0 {
			continue
		}
		if ov := overlap(bboxToDomain(f.Bbox), box); best == -1 || ov > bestOverlap {
			best = i
			bestOverlap = ov
		}
	}

	if best == -1 {
		return nil, ErrNoFaceInResponse
	}

	return resp.Data[0].Faces[best].Vec, nil
}

func bboxToDomain(bbox []int) domain.BoundingBox {
	if len(bbox) < 4 {
		return domain.BoundingBox{}
	}
	return domain.BoundingBox{
		X:      bbox[0],
		Y:      bbox[1],
		Width:  bbox[2] - bbox[0],
		Height: bbox[3] - bbox[1],
	}
}

// overlap is the intersection area of two boxes in pixels.
func overlap(a, b domain.BoundingBox) int {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}
