package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/presenca/internal/attendance"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/ws"
)

// SessionCoordinator is the single-writer session lifecycle the handler
// drives.
type SessionCoordinator interface {
	Start(ctx context.Context, name string) (*domain.Session, error)
	End(ctx context.Context) (*domain.Session, error)
	Current() *domain.Session
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// AttendanceReader lists what a session captured.
type AttendanceReader interface {
	ListForSession(ctx context.Context, session *domain.Session) (*attendance.SessionSummary, error)
	ResetDedup()
}

type SessionHandler struct {
	coordinator SessionCoordinator
	records     AttendanceReader
	hub         Broadcaster
	logger      *slog.Logger
}

// Broadcaster pushes session lifecycle events to connected dashboards.
type Broadcaster interface {
	Broadcast(eventType ws.EventType, data interface{})
}

func NewSessionHandler(coordinator SessionCoordinator, records AttendanceReader, hub Broadcaster, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		coordinator: coordinator,
		records:     records,
		hub:         hub,
		logger:      logger,
	}
}

type StartSessionRequest struct {
	Name string `json:"name"`
}

// Start POST /v1/sessions - open a new attendance session
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrBadRequest.WithError(errors.New("name is required"))
	}

	session, err := h.coordinator.Start(c.Context(), name)
	if err != nil {
		return err
	}

	if h.hub != nil {
		h.hub.Broadcast(ws.EventSessionStarted, session)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// End POST /v1/sessions/end - close the active session, idempotent
func (h *SessionHandler) End(c *fiber.Ctx) error {
	session, err := h.coordinator.End(c.Context())
	if err != nil {
		return err
	}
	if session == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	// Cooldown state is per session; drop it so a later session starts clean.
	h.records.ResetDedup()

	if h.hub != nil {
		h.hub.Broadcast(ws.EventSessionEnded, session)
	}

	return c.JSON(session)
}

// Active GET /v1/sessions/active - the currently open session
func (h *SessionHandler) Active(c *fiber.Ctx) error {
	session := h.coordinator.Current()
	if session == nil {
		return domain.ErrNoActiveSession
	}
	return c.JSON(session)
}

// Get GET /v1/sessions/:id
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	session, err := h.coordinator.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(session)
}

// Attendance GET /v1/sessions/:id/attendance - records captured in a session
func (h *SessionHandler) Attendance(c *fiber.Ctx) error {
	session, err := h.coordinator.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	summary, err := h.records.ListForSession(c.Context(), session)
	if err != nil {
		return err
	}

	return c.JSON(summary)
}
