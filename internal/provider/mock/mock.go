package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

const embeddingDimension = 512

// Provider implementa provider.FaceProvider para testes e desenvolvimento.
// Cada frame com conteúdo suficiente contém exatamente uma face, e o
// embedding é determinístico sobre os bytes da frame: a mesma imagem produz
// sempre o mesmo vetor.
type Provider struct{}

// New cria uma nova instância do mock provider
func New() *Provider {
	return &Provider{}
}

// DetectFaces simula detecção de faces
func (p *Provider) DetectFaces(ctx context.Context, frame []byte) ([]provider.DetectedFace, error) {
	if len(frame) < 1000 {
		return nil, domain.ErrInvalidImage
	}

	return []provider.DetectedFace{
		{
			BoundingBox: domain.BoundingBox{
				X:      64,
				Y:      48,
				Width:  512,
				Height: 384,
			},
			Confidence:   0.99,
			QualityScore: 0.95,
		},
	}, nil
}

// Embed gera embedding determinístico baseado no hash da frame
func (p *Provider) Embed(ctx context.Context, frame []byte, box domain.BoundingBox) ([]float32, error) {
	if len(frame) < 1000 {
		return nil, domain.ErrInvalidImage
	}

	return generateEmbedding(frame), nil
}

// generateEmbedding expande o hash da frame num vetor unitário
func generateEmbedding(frame []byte) []float32 {
	hash := sha256.Sum256(frame)
	embedding := make([]float32, embeddingDimension)

	var norm float64
	for i := range embedding {
		b := hash[i%len(hash)]
		v := float64(b)/127.5 - 1.0
		embedding[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}

	return embedding
}
