package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type SyncQueueRepository struct {
	pool PgxPool
}

func NewSyncQueueRepository(pool PgxPool) *SyncQueueRepository {
	return &SyncQueueRepository{pool: pool}
}

// DueEntries returns pending entries whose retry time has arrived, oldest
// first, joined with the record fields the target payload needs.
func (r *SyncQueueRepository) DueEntries(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	query := `
		SELECT q.id, q.record_id, q.idempotency_key, q.status, q.attempts,
		       q.next_attempt_at, q.last_error, q.created_at, q.processed_at,
		       a.student_id, a.session_id, a.marked_at, a.confidence, s.name
		FROM sync_queue q
		JOIN attendance_records a ON a.id = q.record_id
		JOIN attendance_sessions s ON s.id = a.session_id
		WHERE q.status = 'pending' AND q.next_attempt_at <= NOW()
		ORDER BY q.created_at ASC
		FOR UPDATE OF q SKIP LOCKED
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SyncJob
	for rows.Next() {
		var job domain.SyncJob
		err := rows.Scan(
			&job.Entry.ID,
			&job.Entry.RecordID,
			&job.Entry.IdempotencyKey,
			&job.Entry.Status,
			&job.Entry.Attempts,
			&job.Entry.NextAttemptAt,
			&job.Entry.LastError,
			&job.Entry.CreatedAt,
			&job.Entry.ProcessedAt,
			&job.StudentID,
			&job.SessionID,
			&job.MarkedAt,
			&job.Confidence,
			&job.SessionName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync jobs: %w", err)
	}

	return jobs, nil
}

// MarkSynced removes the entry from the pending set and flips the record's
// sync status, in one transaction.
func (r *SyncQueueRepository) MarkSynced(ctx context.Context, entryID, recordID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark synced tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE sync_queue
		SET status = 'synced', processed_at = NOW()
		WHERE id = $1
	`, entryID)
	if err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE attendance_records
		SET sync_status = 'synced'
		WHERE id = $1
	`, recordID)
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mark synced tx: %w", err)
	}

	return nil
}

// ScheduleRetry bumps the attempt count and parks the entry until the next
// backoff window.
func (r *SyncQueueRepository) ScheduleRetry(ctx context.Context, entryID uuid.UUID, nextAttempt time.Time, lastError string) error {
	query := `
		UPDATE sync_queue
		SET attempts = attempts + 1,
		    next_attempt_at = $1,
		    last_error = $2,
		    status = 'pending'
		WHERE id = $3
	`

	_, err := r.pool.Exec(ctx, query, nextAttempt, lastError, entryID)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}

	return nil
}

// MarkFailed parks the entry in its terminal sub-state. The entry stays in
// the table for operator attention; nothing deletes it.
func (r *SyncQueueRepository) MarkFailed(ctx context.Context, entryID, recordID uuid.UUID, lastError string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mark failed tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE sync_queue
		SET status = 'failed', attempts = attempts + 1, last_error = $1, processed_at = NOW()
		WHERE id = $2
	`, lastError, entryID)
	if err != nil {
		return fmt.Errorf("mark entry failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE attendance_records
		SET sync_status = 'failed'
		WHERE id = $1
	`, recordID)
	if err != nil {
		return fmt.Errorf("mark record failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mark failed tx: %w", err)
	}

	return nil
}

func (r *SyncQueueRepository) ListFailed(ctx context.Context) ([]domain.SyncEntry, error) {
	query := `
		SELECT id, record_id, idempotency_key, status, attempts,
		       next_attempt_at, last_error, created_at, processed_at
		FROM sync_queue
		WHERE status = 'failed'
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list failed entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.SyncEntry
	for rows.Next() {
		var entry domain.SyncEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RecordID,
			&entry.IdempotencyKey,
			&entry.Status,
			&entry.Attempts,
			&entry.NextAttemptAt,
			&entry.LastError,
			&entry.CreatedAt,
			&entry.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sync entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed entries: %w", err)
	}

	return entries, nil
}

// Requeue puts a failed entry back in play with a fresh retry budget. Only
// failed entries can be requeued; the drainer owns pending ones.
func (r *SyncQueueRepository) Requeue(ctx context.Context, entryID uuid.UUID) error {
	var status domain.SyncStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM sync_queue WHERE id = $1`, entryID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrSyncEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("get sync entry: %w", err)
	}

	if status != domain.SyncFailed {
		return domain.ErrSyncEntryNotFailed
	}

	query := `
		UPDATE sync_queue
		SET status = 'pending', attempts = 0, next_attempt_at = NOW(),
		    last_error = NULL, processed_at = NULL
		WHERE id = $1 AND status = 'failed'
	`

	_, err = r.pool.Exec(ctx, query, entryID)
	if err != nil {
		return fmt.Errorf("requeue sync entry: %w", err)
	}

	return nil
}

func (r *SyncQueueRepository) Stats(ctx context.Context) (*domain.SyncStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'synced'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM sync_queue
	`

	var stats domain.SyncStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.Pending, &stats.Synced, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("sync queue stats: %w", err)
	}

	return &stats, nil
}
