package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
)

// Coordinator owns the active-session state that gates attendance creation.
// All reads and writes of "which session is running" go through its single
// mutex, so a recognition event can never observe a half-finished
// start/stop transition.
//
// Lifecycle is strictly idle -> active -> idle; an ended session never
// reopens.
type Coordinator struct {
	repo   repository.SessionRepositoryInterface
	logger *slog.Logger

	mu      sync.Mutex
	current *domain.Session
}

func NewCoordinator(repo repository.SessionRepositoryInterface, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		repo:   repo,
		logger: logger,
	}
}

// Recover closes any session left active by a previous process. Sessions do
// not resume across restarts: the record gets an explicit end timestamp
// instead of silently spanning the downtime.
func (c *Coordinator) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended, err := c.repo.EndActive(ctx)
	if err != nil {
		return fmt.Errorf("close stale session: %w", err)
	}

	if ended != nil {
		c.logger.Warn("closed session left active by previous run",
			slog.String("session_id", ended.ID.String()),
			slog.String("name", ended.Name),
		)
	}

	return nil
}

// Start opens a new session. Fails with ErrSessionAlreadyActive when one is
// in progress; the store's unique index backs the same rule up against any
// out-of-band writer.
func (c *Coordinator) Start(ctx context.Context, name string) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, domain.ErrSessionAlreadyActive
	}

	session := &domain.Session{Name: name}
	if err := c.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	c.current = session
	c.logger.Info("session started",
		slog.String("session_id", session.ID.String()),
		slog.String("name", session.Name),
	)

	return c.snapshotLocked(), nil
}

// End closes the active session. Ending while idle is an idempotent no-op
// returning (nil, nil).
func (c *Coordinator) End(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended, err := c.repo.EndActive(ctx)
	if err != nil {
		return nil, err
	}

	c.current = nil

	if ended == nil {
		return nil, nil
	}

	c.logger.Info("session ended",
		slog.String("session_id", ended.ID.String()),
		slog.String("name", ended.Name),
	)

	return ended, nil
}

// Current returns a copy of the active session, or nil while idle. Never
// blocks on storage; this is the per-event gate the pipeline consults.
func (c *Coordinator) Current() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// GetByID resolves a session by id, for the attendance listing endpoint.
func (c *Coordinator) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	session, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Coordinator) lookup(ctx context.Context, id string) (*domain.Session, error) {
	parsed, err := parseSessionID(id)
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}

	session, err := c.repo.GetByID(ctx, parsed)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrInternal.WithError(err)
	}

	return session, nil
}

func (c *Coordinator) snapshotLocked() *domain.Session {
	if c.current == nil {
		return nil
	}
	copied := *c.current
	return &copied
}
