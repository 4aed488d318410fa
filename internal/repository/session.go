package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type SessionRepository struct {
	pool PgxPool
}

func NewSessionRepository(pool PgxPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create opens a new active session. The partial unique index on active
// status makes this fail when one is already in progress.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO attendance_sessions (id, name, status, started_at, created_at)
		VALUES ($1, $2, 'active', NOW(), NOW())
		RETURNING status, started_at, created_at
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query, session.ID, session.Name).
		Scan(&session.Status, &session.StartedAt, &session.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSessionAlreadyActive
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetActive returns the single active session, or ErrNoActiveSession.
func (r *SessionRepository) GetActive(ctx context.Context) (*domain.Session, error) {
	query := `
		SELECT id, name, status, started_at, ended_at, created_at
		FROM attendance_sessions
		WHERE status = 'active'
	`

	session, err := r.scanOne(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}

	return session, nil
}

// EndActive closes whichever session is active. Returns (nil, nil) when none
// is, so ending on idle stays an idempotent no-op.
func (r *SessionRepository) EndActive(ctx context.Context) (*domain.Session, error) {
	query := `
		UPDATE attendance_sessions
		SET status = 'ended', ended_at = NOW()
		WHERE status = 'active'
		RETURNING id, name, status, started_at, ended_at, created_at
	`

	session, err := r.scanOne(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("end active session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, name, status, started_at, ended_at, created_at
		FROM attendance_sessions
		WHERE id = $1
	`

	session, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) scanOne(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.Name,
		&session.Status,
		&session.StartedAt,
		&session.EndedAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
