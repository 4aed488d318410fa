package templatestore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
)

// Store holds the in-memory enrolled template set the matcher scans.
// Loads replace the set wholesale; incremental patching invites stale-entry
// bugs when an identity is edited or removed externally.
type Store struct {
	repo   repository.TemplateRepositoryInterface
	logger *slog.Logger

	mu        sync.RWMutex
	templates []domain.Template
	loadedAt  time.Time
}

func New(repo repository.TemplateRepositoryInterface, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
	}
}

// Load performs the first load. Fail-closed: a failure here propagates, and
// with zero templates loaded nobody can be recognized, which is the safe
// default for an unreachable store at startup.
func (s *Store) Load(ctx context.Context) error {
	templates, err := s.repo.GetAllActive(ctx)
	if err != nil {
		return domain.ErrStoreUnavailable.WithError(err)
	}

	s.swap(templates)
	s.logger.Info("templates loaded", slog.Int("count", len(templates)))
	return nil
}

// Reload refreshes the set on demand. Fail-open: on failure the previous
// set is retained so recognition keeps working on last-known enrollment.
func (s *Store) Reload(ctx context.Context) error {
	templates, err := s.repo.GetAllActive(ctx)
	if err != nil {
		s.logger.Warn("template reload failed, keeping previous set",
			slog.Int("retained", s.Count()),
			slog.Any("error", err),
		)
		return domain.ErrStoreUnavailable.WithError(err)
	}

	s.swap(templates)
	s.logger.Info("templates reloaded", slog.Int("count", len(templates)))
	return nil
}

// Snapshot returns the current template set. Callers must not mutate it;
// loads swap the slice rather than writing into it, so a held snapshot
// stays consistent during a concurrent reload.
func (s *Store) Snapshot() []domain.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Store) swap(templates []domain.Template) {
	s.mu.Lock()
	s.templates = templates
	s.loadedAt = time.Now()
	s.mu.Unlock()
}
