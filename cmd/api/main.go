package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/api"
	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/camera"
	"github.com/saturnino-fabrica-de-software/presenca/internal/cloudsync"
	"github.com/saturnino-fabrica-de-software/presenca/internal/config"
	"github.com/saturnino-fabrica-de-software/presenca/internal/database"
	"github.com/saturnino-fabrica-de-software/presenca/internal/dedup"
	"github.com/saturnino-fabrica-de-software/presenca/internal/face"
	"github.com/saturnino-fabrica-de-software/presenca/internal/matcher"
	"github.com/saturnino-fabrica-de-software/presenca/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
	"github.com/saturnino-fabrica-de-software/presenca/internal/session"
	"github.com/saturnino-fabrica-de-software/presenca/internal/sheets"
	"github.com/saturnino-fabrica-de-software/presenca/internal/templatestore"
	"github.com/saturnino-fabrica-de-software/presenca/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Presenca API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Repositories
	templateRepo := repository.NewTemplateRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	syncRepo := repository.NewSyncQueueRepository(pool)

	// Template gallery. First load is fail-closed: without templates nothing
	// can be recognized, better to refuse startup than run blind.
	templates := templatestore.New(templateRepo, logger)
	if err := templates.Load(ctx); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// Session lifecycle. Recover closes any session left open by a crash.
	coordinator := session.NewCoordinator(sessionRepo, logger)
	if err := coordinator.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover session state: %w", err)
	}

	// Face provider and camera
	faceProvider, err := face.NewFaceProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face provider: %w", err)
	}
	cameraSource := camera.NewMJPEGSource(cfg.CameraURL)

	// Live dashboard hub
	hub := ws.NewHub()

	// Recognition and attendance
	m := matcher.New(templates, cfg.RecognitionThreshold, cfg.AmbiguityMargin)
	deduplicator := dedup.New(cfg.Cooldown)
	attendanceSvc := attendance.NewService(coordinator, deduplicator, attendanceRepo, hub, logger)

	pipe := pipeline.New(cameraSource, faceProvider, m, attendanceSvc, logger, pipeline.Options{
		SampleEveryNthFrame: cfg.SampleEveryNthFrame,
		MinQualityScore:     cfg.MinQualityScore,
		ReconnectMax:        cfg.CameraReconnectMax,
	})

	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	defer pipeCancel()
	go pipe.Run(pipeCtx)

	// Cloud sync
	target := sheets.NewClient(cfg.SheetURL, cfg.SheetToken)
	syncWorker := cloudsync.NewWorker(syncRepo, target, logger, cloudsync.Options{
		Interval:      cfg.SyncInterval,
		BatchSize:     cfg.SyncBatchSize,
		MaxAttempts:   cfg.SyncMaxAttempts,
		UpsertTimeout: cfg.SyncUpsertTimeout,
	})

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		DB:          pool,
		Coordinator: coordinator,
		Attendance:  attendanceSvc,
		Pipeline:    pipe,
		Templates:   templates,
		SyncRepo:    syncRepo,
		SyncWorker:  syncWorker,
		Hub:         hub,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	pipeCancel()
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
