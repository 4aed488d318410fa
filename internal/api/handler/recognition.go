package handler

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/presenca/internal/pipeline"
)

const previewInterval = 100 * time.Millisecond

// PipelineStatus is what the monitoring endpoint reads off the frame loop.
type PipelineStatus interface {
	Status() pipeline.Status
	LatestFrame() *pipeline.FrameSnapshot
}

// TemplateReloader refreshes the in-memory gallery from storage.
type TemplateReloader interface {
	Reload(ctx context.Context) error
	Count() int
	LoadedAt() time.Time
}

type RecognitionHandler struct {
	pipeline  PipelineStatus
	templates TemplateReloader
	logger    *slog.Logger
}

func NewRecognitionHandler(p PipelineStatus, templates TemplateReloader, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		pipeline:  p,
		templates: templates,
		logger:    logger,
	}
}

type RecognitionStatusResponse struct {
	Pipeline  pipeline.Status `json:"pipeline"`
	Templates TemplatesStatus `json:"templates"`
}

type TemplatesStatus struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Status GET /v1/recognition/status
func (h *RecognitionHandler) Status(c *fiber.Ctx) error {
	return c.JSON(RecognitionStatusResponse{
		Pipeline: h.pipeline.Status(),
		Templates: TemplatesStatus{
			Count:    h.templates.Count(),
			LoadedAt: h.templates.LoadedAt(),
		},
	})
}

// Stream GET /v1/recognition/stream - MJPEG preview of the processed feed.
// The browser gets the pipeline's latest snapshot, never the camera itself,
// so any number of viewers cost the capture loop nothing.
func (h *RecognitionHandler) Stream(c *fiber.Ctx) error {
	const boundary = "presencaframe"

	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+boundary)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	p := h.pipeline
	logger := h.logger

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		var lastSent time.Time

		for {
			snapshot := p.LatestFrame()
			if snapshot != nil && snapshot.CapturedAt.After(lastSent) {
				lastSent = snapshot.CapturedAt

				_, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
					boundary, len(snapshot.Frame))
				if err == nil {
					_, err = w.Write(snapshot.Frame)
				}
				if err == nil {
					_, err = w.WriteString("\r\n")
				}
				if err == nil {
					err = w.Flush()
				}
				if err != nil {
					// Viewer went away.
					logger.Debug("preview stream closed", slog.Any("error", err))
					return
				}
			}

			time.Sleep(previewInterval)
		}
	})

	return nil
}

type ReloadResponse struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ReloadTemplates POST /v1/templates/reload - refresh the gallery after new
// enrollments. Keeps serving the previous set if storage is unreachable.
func (h *RecognitionHandler) ReloadTemplates(c *fiber.Ctx) error {
	if err := h.templates.Reload(c.Context()); err != nil {
		return err
	}

	return c.JSON(ReloadResponse{
		Count:    h.templates.Count(),
		LoadedAt: h.templates.LoadedAt(),
	})
}
