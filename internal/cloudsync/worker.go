package cloudsync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
)

// Options tunes the drain loop.
type Options struct {
	Interval      time.Duration
	BatchSize     int
	MaxAttempts   int
	UpsertTimeout time.Duration
}

// Worker drains the durable sync queue into the cloud target. It runs beside
// the recognition pipeline and survives arbitrarily long offline stretches:
// entries just accumulate until the target answers again.
type Worker struct {
	repo   repository.SyncQueueRepositoryInterface
	target Target
	logger *slog.Logger
	opts   Options
	stopCh chan struct{}
}

func NewWorker(repo repository.SyncQueueRepositoryInterface, target Target, logger *slog.Logger, opts Options) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 8
	}
	if opts.UpsertTimeout <= 0 {
		opts.UpsertTimeout = 10 * time.Second
	}

	return &Worker{
		repo:   repo,
		target: target,
		logger: logger,
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.logger.Info("cloud sync worker started",
		slog.Duration("interval", w.opts.Interval),
		slog.Int("batch_size", w.opts.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cloud sync worker stopped")
			return
		case <-w.stopCh:
			w.logger.Info("cloud sync worker stopped")
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.Error("failed to drain sync queue", "error", err)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
}

// Drain pushes one batch of due entries to the target. Exported so the API
// can trigger an immediate flush without waiting for the next tick.
func (w *Worker) Drain(ctx context.Context) error {
	jobs, err := w.repo.DueEntries(ctx, w.opts.BatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processJob(ctx, &job); err != nil {
			w.logger.Error("failed to process sync job",
				"entry_id", job.Entry.ID,
				"attempts", job.Entry.Attempts,
				"error", err,
			)
		}
	}

	return nil
}

func (w *Worker) processJob(ctx context.Context, job *domain.SyncJob) error {
	row := &Row{
		IdempotencyKey: job.Entry.IdempotencyKey,
		StudentID:      job.StudentID,
		SessionID:      job.SessionID,
		SessionName:    job.SessionName,
		MarkedAt:       job.MarkedAt,
		Confidence:     job.Confidence,
	}

	upsertCtx, cancel := context.WithTimeout(ctx, w.opts.UpsertTimeout)
	err := w.target.Upsert(upsertCtx, row)
	cancel()

	if err == nil {
		if markErr := w.repo.MarkSynced(ctx, job.Entry.ID, job.Entry.RecordID); markErr != nil {
			return markErr
		}
		w.logger.Info("attendance record synced",
			"entry_id", job.Entry.ID,
			"idempotency_key", row.IdempotencyKey,
		)
		return nil
	}

	var fatal *FatalError
	if errors.As(err, &fatal) {
		return w.fail(ctx, job, err.Error())
	}

	return w.scheduleRetry(ctx, job, err.Error())
}

func (w *Worker) scheduleRetry(ctx context.Context, job *domain.SyncJob, errorMsg string) error {
	attempts := job.Entry.Attempts + 1
	if attempts >= w.opts.MaxAttempts {
		return w.fail(ctx, job, errorMsg)
	}

	delay := time.Duration(1<<attempts) * time.Second
	nextAttempt := time.Now().Add(delay)

	if err := w.repo.ScheduleRetry(ctx, job.Entry.ID, nextAttempt, errorMsg); err != nil {
		return err
	}

	w.logger.Info("sync job scheduled for retry",
		"entry_id", job.Entry.ID,
		"attempts", attempts,
		"next_attempt", nextAttempt,
	)
	return nil
}

func (w *Worker) fail(ctx context.Context, job *domain.SyncJob, errorMsg string) error {
	if err := w.repo.MarkFailed(ctx, job.Entry.ID, job.Entry.RecordID, errorMsg); err != nil {
		return err
	}

	w.logger.Warn("sync job failed permanently",
		"entry_id", job.Entry.ID,
		"attempts", job.Entry.Attempts,
		"error", errorMsg,
	)
	return nil
}
