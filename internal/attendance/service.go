package attendance

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/presenca/internal/dedup"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/repository"
	"github.com/saturnino-fabrica-de-software/presenca/internal/ws"
)

// SessionGate exposes the coordinator state the service consults per event.
type SessionGate interface {
	Current() *domain.Session
}

// Broadcaster is the live-feed sink; ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(eventType ws.EventType, data interface{})
}

// Service turns recognition events into attendance records. It sits between
// the pipeline and storage and enforces the two gates: no record without an
// active session, and at most one record per identity per cooldown window.
type Service struct {
	gate      SessionGate
	dedup     *dedup.Deduplicator
	repo      repository.AttendanceRepositoryInterface
	broadcast Broadcaster
	logger    *slog.Logger
}

func NewService(
	gate SessionGate,
	deduplicator *dedup.Deduplicator,
	repo repository.AttendanceRepositoryInterface,
	broadcast Broadcaster,
	logger *slog.Logger,
) *Service {
	return &Service{
		gate:      gate,
		dedup:     deduplicator,
		repo:      repo,
		broadcast: broadcast,
		logger:    logger,
	}
}

// HandleEvent processes one recognition event. Errors are handled here, not
// returned: one bad event must never stop the frame loop, and the dedup
// acceptance is rolled back on storage failure so the sighting retries.
func (s *Service) HandleEvent(ctx context.Context, event *domain.RecognitionEvent) {
	if s.broadcast != nil {
		s.broadcast.Broadcast(ws.EventRecognition, event)
	}

	session := s.gate.Current()

	switch s.dedup.Observe(event, session) {
	case dedup.NoSession:
		// Recognition keeps running for the diagnostic display while idle;
		// the event is discarded here, at the record boundary.
		s.logger.Debug("event discarded, no active session")
		return
	case dedup.Unmatched:
		s.logger.Debug("unmatched face",
			slog.Float64("distance", event.Distance),
		)
		return
	case dedup.Suppressed:
		s.logger.Debug("sighting inside cooldown window",
			slog.String("student_id", event.StudentID.String()),
		)
		return
	case dedup.Accepted:
	}

	record := &domain.AttendanceRecord{
		SessionID:  session.ID,
		StudentID:  *event.StudentID,
		MarkedAt:   event.ObservedAt,
		Confidence: confidence(event.Distance),
	}

	if err := s.repo.CreateWithSyncEntry(ctx, record); err != nil {
		s.dedup.Forget(record.StudentID, session.ID)
		s.logger.Error("failed to persist attendance record",
			slog.String("student_id", record.StudentID.String()),
			slog.String("session_id", session.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("attendance marked",
		slog.String("student_id", record.StudentID.String()),
		slog.String("session_id", session.ID.String()),
		slog.Float64("confidence", record.Confidence),
	)

	if s.broadcast != nil {
		s.broadcast.Broadcast(ws.EventAttendanceMarked, record)
	}
}

// SessionSummary aggregates a session's attendance for the API.
type SessionSummary struct {
	Session *domain.Session           `json:"session"`
	Count   int                       `json:"count"`
	Records []domain.AttendanceRecord `json:"records"`
}

// ListForSession returns a session's records with a count, oldest first.
func (s *Service) ListForSession(ctx context.Context, session *domain.Session) (*SessionSummary, error) {
	records, err := s.repo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	return &SessionSummary{
		Session: session,
		Count:   len(records),
		Records: records,
	}, nil
}

// confidence maps an L2 distance onto (0, 1]: distance 0 is a perfect match
// and the score decays as the probe drifts from the template.
func confidence(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1.0 / (1.0 + distance/10.0)
}

// ResetDedup clears cooldown state, e.g. when a session ends.
func (s *Service) ResetDedup() {
	s.dedup.Reset()
}

// TrackedIdentities reports how many students are inside a cooldown window.
func (s *Service) TrackedIdentities() int {
	return s.dedup.TrackedCount()
}
