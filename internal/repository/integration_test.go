//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"

	"github.com/google/uuid"
)

func setupIntegrationTest(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "presenca_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/presenca_test?sslmode=disable", host, port.Port())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
		CREATE EXTENSION IF NOT EXISTS "vector";

		CREATE TABLE face_templates (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			student_id UUID NOT NULL,
			embedding vector(512) NOT NULL,
			quality_score FLOAT NOT NULL DEFAULT 0,
			source_ref VARCHAR(255),
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE attendance_sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(200) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX idx_one_active_session
			ON attendance_sessions ((true)) WHERE status = 'active';

		CREATE TABLE attendance_records (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			session_id UUID NOT NULL REFERENCES attendance_sessions (id),
			student_id UUID NOT NULL,
			marked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			confidence FLOAT NOT NULL DEFAULT 0,
			sync_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE sync_queue (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			record_id UUID NOT NULL REFERENCES attendance_records (id),
			idempotency_key VARCHAR(120) NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	return db
}

func TestSessionLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupIntegrationTest(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	t.Run("no active session initially", func(t *testing.T) {
		_, err := repo.GetActive(ctx)
		assert.ErrorIs(t, err, domain.ErrNoActiveSession)
	})

	t.Run("end on idle is a no-op", func(t *testing.T) {
		session, err := repo.EndActive(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	session := &domain.Session{Name: "Turma A - Manhã"}

	t.Run("create session", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, session))
		assert.Equal(t, domain.SessionActive, session.Status)
		assert.False(t, session.StartedAt.IsZero())
	})

	t.Run("second active session is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &domain.Session{Name: "Turma B"})
		assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)
	})

	t.Run("get active returns it", func(t *testing.T) {
		active, err := repo.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, session.ID, active.ID)
		assert.Equal(t, "Turma A - Manhã", active.Name)
	})

	t.Run("end session", func(t *testing.T) {
		ended, err := repo.EndActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, ended)
		assert.Equal(t, session.ID, ended.ID)
		assert.Equal(t, domain.SessionEnded, ended.Status)
		require.NotNil(t, ended.EndedAt)
	})

	t.Run("new session allowed after ending", func(t *testing.T) {
		next := &domain.Session{Name: "Turma A - Tarde"}
		require.NoError(t, repo.Create(ctx, next))
		assert.NotEqual(t, session.ID, next.ID)
	})
}

func TestSyncQueueLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupIntegrationTest(t)
	ctx := context.Background()

	sessions := NewSessionRepository(db)
	attendance := NewAttendanceRepository(db)
	queue := NewSyncQueueRepository(db)

	session := &domain.Session{Name: "Turma C"}
	require.NoError(t, sessions.Create(ctx, session))

	record := &domain.AttendanceRecord{
		SessionID:  session.ID,
		StudentID:  uuid.New(),
		MarkedAt:   time.Now().UTC().Truncate(time.Second),
		Confidence: 0.93,
	}
	require.NoError(t, attendance.CreateWithSyncEntry(ctx, record))

	var entryID uuid.UUID

	t.Run("record creation enqueues a due entry", func(t *testing.T) {
		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)

		job := jobs[0]
		entryID = job.Entry.ID
		assert.Equal(t, record.ID, job.Entry.RecordID)
		assert.Equal(t, record.IdempotencyKey(), job.Entry.IdempotencyKey)
		assert.Equal(t, record.StudentID, job.StudentID)
		assert.Equal(t, "Turma C", job.SessionName)
		assert.Equal(t, 0, job.Entry.Attempts)
	})

	t.Run("scheduled retry hides the entry until due", func(t *testing.T) {
		err := queue.ScheduleRetry(ctx, entryID, time.Now().Add(time.Hour), "HTTP 502")
		require.NoError(t, err)

		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("entry comes back once the retry time passes", func(t *testing.T) {
		err := queue.ScheduleRetry(ctx, entryID, time.Now().Add(-time.Second), "HTTP 502")
		require.NoError(t, err)

		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, 2, jobs[0].Entry.Attempts)
		require.NotNil(t, jobs[0].Entry.LastError)
		assert.Equal(t, "HTTP 502", *jobs[0].Entry.LastError)
	})

	t.Run("mark failed parks the entry and flips the record", func(t *testing.T) {
		require.NoError(t, queue.MarkFailed(ctx, entryID, record.ID, "HTTP 422"))

		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		failed, err := queue.ListFailed(ctx)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, entryID, failed[0].ID)

		records, err := attendance.ListBySession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.SyncFailed, records[0].SyncStatus)
	})

	t.Run("requeue resets the retry budget", func(t *testing.T) {
		require.NoError(t, queue.Requeue(ctx, entryID))

		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, 0, jobs[0].Entry.Attempts)
		assert.Nil(t, jobs[0].Entry.LastError)
	})

	t.Run("requeue rejects a pending entry", func(t *testing.T) {
		err := queue.Requeue(ctx, entryID)
		assert.ErrorIs(t, err, domain.ErrSyncEntryNotFailed)
	})

	t.Run("mark synced drains the entry", func(t *testing.T) {
		require.NoError(t, queue.MarkSynced(ctx, entryID, record.ID))

		jobs, err := queue.DueEntries(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		stats, err := queue.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Pending)
		assert.Equal(t, 1, stats.Synced)
		assert.Equal(t, 0, stats.Failed)

		records, err := attendance.ListBySession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.SyncSynced, records[0].SyncStatus)
	})
}

func TestTemplateRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupIntegrationTest(t)
	ctx := context.Background()
	repo := NewTemplateRepository(db)

	studentID := uuid.New()
	embedding := make([]float32, 512)
	embedding[0] = 0.5
	embedding[1] = -0.25

	_, err := db.Exec(ctx, `
		INSERT INTO face_templates (student_id, embedding, quality_score, source_ref, active)
		VALUES ($1, $2, 0.9, 'enroll/ana.jpg', true),
		       ($1, $3, 0.4, NULL, false)
	`, studentID, pgvector.NewVector(embedding), pgvector.NewVector(make([]float32, 512)))
	require.NoError(t, err)

	templates, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1, "inactive templates must not load")

	tpl := templates[0]
	assert.Equal(t, studentID, tpl.StudentID)
	assert.Equal(t, "enroll/ana.jpg", tpl.SourceRef)
	assert.InDelta(t, 0.9, tpl.QualityScore, 1e-9)
	require.Len(t, tpl.Embedding, 512)
	assert.InDelta(t, 0.5, tpl.Embedding[0], 1e-6)
	assert.InDelta(t, -0.25, tpl.Embedding[1], 1e-6)
}
