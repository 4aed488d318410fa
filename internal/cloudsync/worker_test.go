package cloudsync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type MockSyncQueueRepository struct {
	mock.Mock
}

func (m *MockSyncQueueRepository) DueEntries(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncJob), args.Error(1)
}

func (m *MockSyncQueueRepository) MarkSynced(ctx context.Context, entryID, recordID uuid.UUID) error {
	args := m.Called(ctx, entryID, recordID)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) ScheduleRetry(ctx context.Context, entryID uuid.UUID, nextAttempt time.Time, lastError string) error {
	args := m.Called(ctx, entryID, nextAttempt, lastError)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) MarkFailed(ctx context.Context, entryID, recordID uuid.UUID, lastError string) error {
	args := m.Called(ctx, entryID, recordID, lastError)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) ListFailed(ctx context.Context) ([]domain.SyncEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncEntry), args.Error(1)
}

func (m *MockSyncQueueRepository) Requeue(ctx context.Context, entryID uuid.UUID) error {
	args := m.Called(ctx, entryID)
	return args.Error(0)
}

func (m *MockSyncQueueRepository) Stats(ctx context.Context) (*domain.SyncStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncStats), args.Error(1)
}

type scriptedTarget struct {
	err  error
	rows []*Row
}

func (t *scriptedTarget) Upsert(ctx context.Context, row *Row) error {
	t.rows = append(t.rows, row)
	return t.err
}

func testJob(attempts int) domain.SyncJob {
	return domain.SyncJob{
		Entry: domain.SyncEntry{
			ID:             uuid.New(),
			RecordID:       uuid.New(),
			IdempotencyKey: "student:session:1756500000",
			Status:         domain.SyncPending,
			Attempts:       attempts,
		},
		StudentID:   uuid.New(),
		SessionID:   uuid.New(),
		SessionName: "Turma A",
		MarkedAt:    time.Now().UTC(),
		Confidence:  0.93,
	}
}

func newTestWorker(repo *MockSyncQueueRepository, target Target) *Worker {
	return NewWorker(repo, target, slog.New(slog.DiscardHandler), Options{
		Interval:    time.Minute,
		BatchSize:   10,
		MaxAttempts: 3,
	})
}

func TestDrain_MarksSyncedOnSuccess(t *testing.T) {
	job := testJob(0)
	repo := new(MockSyncQueueRepository)
	repo.On("DueEntries", mock.Anything, 10).Return([]domain.SyncJob{job}, nil)
	repo.On("MarkSynced", mock.Anything, job.Entry.ID, job.Entry.RecordID).Return(nil)

	target := &scriptedTarget{}
	w := newTestWorker(repo, target)

	err := w.Drain(context.Background())
	assert.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Len(t, target.rows, 1)
	assert.Equal(t, job.Entry.IdempotencyKey, target.rows[0].IdempotencyKey)
	assert.Equal(t, job.SessionName, target.rows[0].SessionName)
}

func TestDrain_SchedulesRetryWithBackoff(t *testing.T) {
	job := testJob(0)
	repo := new(MockSyncQueueRepository)
	repo.On("DueEntries", mock.Anything, 10).Return([]domain.SyncJob{job}, nil)
	repo.On("ScheduleRetry", mock.Anything, job.Entry.ID,
		mock.MatchedBy(func(next time.Time) bool {
			// First retry lands roughly 2s out (1<<1).
			delta := time.Until(next)
			return delta > time.Second && delta <= 3*time.Second
		}), mock.AnythingOfType("string")).Return(nil)

	target := &scriptedTarget{err: &RetryableError{Err: errors.New("timeout")}}
	w := newTestWorker(repo, target)

	assert.NoError(t, w.Drain(context.Background()))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDrain_FailsAfterMaxAttempts(t *testing.T) {
	job := testJob(2) // next attempt is the third and last
	repo := new(MockSyncQueueRepository)
	repo.On("DueEntries", mock.Anything, 10).Return([]domain.SyncJob{job}, nil)
	repo.On("MarkFailed", mock.Anything, job.Entry.ID, job.Entry.RecordID, mock.AnythingOfType("string")).Return(nil)

	target := &scriptedTarget{err: &RetryableError{Err: errors.New("still down")}}
	w := newTestWorker(repo, target)

	assert.NoError(t, w.Drain(context.Background()))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDrain_FatalErrorFailsImmediately(t *testing.T) {
	job := testJob(0)
	repo := new(MockSyncQueueRepository)
	repo.On("DueEntries", mock.Anything, 10).Return([]domain.SyncJob{job}, nil)
	repo.On("MarkFailed", mock.Anything, job.Entry.ID, job.Entry.RecordID, mock.AnythingOfType("string")).Return(nil)

	target := &scriptedTarget{err: &FatalError{Err: errors.New("rejected payload")}}
	w := newTestWorker(repo, target)

	assert.NoError(t, w.Drain(context.Background()))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDrain_EmptyQueueIsNoop(t *testing.T) {
	repo := new(MockSyncQueueRepository)
	repo.On("DueEntries", mock.Anything, 10).Return([]domain.SyncJob{}, nil)

	target := &scriptedTarget{}
	w := newTestWorker(repo, target)

	assert.NoError(t, w.Drain(context.Background()))
	assert.Empty(t, target.rows)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := new(MockSyncQueueRepository)
	w := newTestWorker(repo, &scriptedTarget{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
