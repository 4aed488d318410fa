package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Face provider
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"insight"`
	InsightURL   string `envconfig:"INSIGHT_URL" default:"http://localhost:18081"`

	// Camera
	CameraURL          string        `envconfig:"CAMERA_URL" default:"http://localhost:8080/stream"`
	CameraReconnectMax time.Duration `envconfig:"CAMERA_RECONNECT_MAX" default:"30s"`

	// Recognition
	RecognitionThreshold float64 `envconfig:"RECOGNITION_THRESHOLD" default:"20.0"`
	AmbiguityMargin      float64 `envconfig:"AMBIGUITY_MARGIN" default:"2.0"`
	MinQualityScore      float64 `envconfig:"MIN_QUALITY_SCORE" default:"0.5"`
	SampleEveryNthFrame  int     `envconfig:"SAMPLE_EVERY_NTH_FRAME" default:"2"`

	// Attendance
	Cooldown time.Duration `envconfig:"COOLDOWN" default:"5m"`

	// Cloud sync
	SyncInterval      time.Duration `envconfig:"SYNC_INTERVAL" default:"15s"`
	SyncBatchSize     int           `envconfig:"SYNC_BATCH_SIZE" default:"25"`
	SyncMaxAttempts   int           `envconfig:"SYNC_MAX_ATTEMPTS" default:"8"`
	SyncUpsertTimeout time.Duration `envconfig:"SYNC_UPSERT_TIMEOUT" default:"10s"`
	SheetURL          string        `envconfig:"SHEET_URL" default:""`
	SheetToken        string        `envconfig:"SHEET_TOKEN" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SampleEveryNthFrame < 1 {
		return fmt.Errorf("SAMPLE_EVERY_NTH_FRAME must be >= 1, got %d", c.SampleEveryNthFrame)
	}
	if c.AmbiguityMargin < 0 {
		return fmt.Errorf("AMBIGUITY_MARGIN must be >= 0, got %f", c.AmbiguityMargin)
	}
	if c.SyncMaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be >= 1, got %d", c.SyncMaxAttempts)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
