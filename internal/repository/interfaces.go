package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// TemplateRepositoryInterface defines operations for enrolled template access
type TemplateRepositoryInterface interface {
	GetAllActive(ctx context.Context) ([]domain.Template, error)
}

// SessionRepositoryInterface defines operations for attendance session data access
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.Session) error
	GetActive(ctx context.Context) (*domain.Session, error)
	EndActive(ctx context.Context) (*domain.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

// AttendanceRepositoryInterface defines operations for attendance record data access
type AttendanceRepositoryInterface interface {
	CreateWithSyncEntry(ctx context.Context, record *domain.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AttendanceRecord, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// SyncQueueRepositoryInterface defines operations for the durable export queue
type SyncQueueRepositoryInterface interface {
	DueEntries(ctx context.Context, limit int) ([]domain.SyncJob, error)
	MarkSynced(ctx context.Context, entryID, recordID uuid.UUID) error
	ScheduleRetry(ctx context.Context, entryID uuid.UUID, nextAttempt time.Time, lastError string) error
	MarkFailed(ctx context.Context, entryID, recordID uuid.UUID, lastError string) error
	ListFailed(ctx context.Context) ([]domain.SyncEntry, error)
	Requeue(ctx context.Context, entryID uuid.UUID) error
	Stats(ctx context.Context) (*domain.SyncStats, error)
}
