package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// CreateWithSyncEntry inserts the attendance record and its sync queue entry
// in one transaction. If the entry cannot be persisted the record is rolled
// back with it: a record that exists without a queued export would be
// silently unsynced, which is the one unacceptable failure mode here.
func (r *AttendanceRepository) CreateWithSyncEntry(ctx context.Context, record *domain.AttendanceRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	recordQuery := `
		INSERT INTO attendance_records (id, session_id, student_id, marked_at, confidence, sync_status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.SyncStatus = domain.SyncPending

	err = tx.QueryRow(ctx, recordQuery,
		record.ID,
		record.SessionID,
		record.StudentID,
		record.MarkedAt,
		record.Confidence,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}

	entryQuery := `
		INSERT INTO sync_queue (id, record_id, idempotency_key, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, 'pending', 0, NOW(), NOW())
	`

	_, err = tx.Exec(ctx, entryQuery, uuid.New(), record.ID, record.IdempotencyKey())
	if err != nil {
		return fmt.Errorf("enqueue sync entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}

	return nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT id, session_id, student_id, marked_at, confidence, sync_status, created_at
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY marked_at
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []domain.AttendanceRecord
	for rows.Next() {
		var rec domain.AttendanceRecord
		err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.StudentID,
			&rec.MarkedAt,
			&rec.Confidence,
			&rec.SyncStatus,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}

	return records, nil
}

func (r *AttendanceRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records WHERE session_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}

	return count, nil
}
