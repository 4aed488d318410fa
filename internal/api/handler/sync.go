package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
)

// Flusher triggers an immediate queue drain outside the worker's tick.
type Flusher interface {
	Drain(ctx context.Context) error
}

type SyncHandler struct {
	repo    repository.SyncQueueRepositoryInterface
	flusher Flusher
	logger  *slog.Logger
}

func NewSyncHandler(repo repository.SyncQueueRepositoryInterface, flusher Flusher, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		repo:    repo,
		flusher: flusher,
		logger:  logger,
	}
}

// Status GET /v1/sync/status - queue depth per state
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	stats, err := h.repo.Stats(c.Context())
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(stats)
}

type FailedEntriesResponse struct {
	Entries []domain.SyncEntry `json:"entries"`
	Count   int                `json:"count"`
}

// Failed GET /v1/sync/failed - entries that exhausted their retries
func (h *SyncHandler) Failed(c *fiber.Ctx) error {
	entries, err := h.repo.ListFailed(c.Context())
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(FailedEntriesResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// Retry POST /v1/sync/failed/:id/retry - put one failed entry back in line
func (h *SyncHandler) Retry(c *fiber.Ctx) error {
	entryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	if err := h.repo.Requeue(c.Context(), entryID); err != nil {
		return err
	}

	h.logger.Info("failed sync entry requeued", slog.String("entry_id", entryID.String()))
	return c.SendStatus(fiber.StatusAccepted)
}

// Flush POST /v1/sync/flush - drain due entries now instead of next tick
func (h *SyncHandler) Flush(c *fiber.Ctx) error {
	if err := h.flusher.Drain(c.Context()); err != nil {
		return domain.ErrInternal.WithError(err)
	}

	stats, err := h.repo.Stats(c.Context())
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(stats)
}
