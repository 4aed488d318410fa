package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/presenca/internal/config"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider/insight"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider/mock"
)

// ProviderType defines supported face recognition provider types
type ProviderType string

const (
	// ProviderTypeInsight is the insightface-rest sidecar (default)
	ProviderTypeInsight ProviderType = "insight"
	// ProviderTypeMock is the deterministic provider for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates a FaceProvider instance based on configuration.
//
// Environment variables:
//   - PROVIDER_TYPE: "insight" or "mock" (default: "insight")
//   - INSIGHT_URL: insightface-rest base URL (default: "http://localhost:18081")
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeInsight, "":
		insightCfg := insight.DefaultConfig()
		if cfg.InsightURL != "" {
			insightCfg.BaseURL = cfg.InsightURL
		}
		return insight.NewProvider(insightCfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeInsight, ProviderTypeMock)
	}
}
