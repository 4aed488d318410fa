package attendance

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/presenca/internal/dedup"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/ws"
)

type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) CreateWithSyncEntry(ctx context.Context, record *domain.AttendanceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAttendanceRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

func (m *MockAttendanceRepository) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

type stubGate struct {
	session *domain.Session
}

func (g *stubGate) Current() *domain.Session {
	return g.session
}

type recordingBroadcaster struct {
	events []ws.EventType
}

func (b *recordingBroadcaster) Broadcast(eventType ws.EventType, data interface{}) {
	b.events = append(b.events, eventType)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func matchedEvent(studentID uuid.UUID, at time.Time) *domain.RecognitionEvent {
	templateID := uuid.New()
	return &domain.RecognitionEvent{
		StudentID:    &studentID,
		TemplateID:   &templateID,
		Distance:     12.5,
		QualityScore: 0.9,
		ObservedAt:   at,
	}
}

func TestHandleEvent_MarksAttendance(t *testing.T) {
	studentID := uuid.New()
	session := &domain.Session{ID: uuid.New(), Status: domain.SessionActive}

	repo := new(MockAttendanceRepository)
	repo.On("CreateWithSyncEntry", mock.Anything, mock.MatchedBy(func(r *domain.AttendanceRecord) bool {
		return r.StudentID == studentID && r.SessionID == session.ID
	})).Return(nil)

	broadcaster := &recordingBroadcaster{}
	svc := NewService(&stubGate{session: session}, dedup.New(5*time.Minute), repo, broadcaster, testLogger())

	svc.HandleEvent(context.Background(), matchedEvent(studentID, time.Now()))

	repo.AssertExpectations(t)
	assert.Contains(t, broadcaster.events, ws.EventAttendanceMarked)
	assert.Equal(t, 1, svc.TrackedIdentities())
}

func TestHandleEvent_NoActiveSession(t *testing.T) {
	repo := new(MockAttendanceRepository)
	svc := NewService(&stubGate{}, dedup.New(5*time.Minute), repo, nil, testLogger())

	svc.HandleEvent(context.Background(), matchedEvent(uuid.New(), time.Now()))

	repo.AssertNotCalled(t, "CreateWithSyncEntry", mock.Anything, mock.Anything)
}

func TestHandleEvent_UnmatchedEvent(t *testing.T) {
	session := &domain.Session{ID: uuid.New(), Status: domain.SessionActive}
	repo := new(MockAttendanceRepository)
	svc := NewService(&stubGate{session: session}, dedup.New(5*time.Minute), repo, nil, testLogger())

	svc.HandleEvent(context.Background(), &domain.RecognitionEvent{Distance: 42.0, ObservedAt: time.Now()})

	repo.AssertNotCalled(t, "CreateWithSyncEntry", mock.Anything, mock.Anything)
}

func TestHandleEvent_CooldownSuppressesSecondSighting(t *testing.T) {
	studentID := uuid.New()
	session := &domain.Session{ID: uuid.New(), Status: domain.SessionActive}

	repo := new(MockAttendanceRepository)
	repo.On("CreateWithSyncEntry", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewService(&stubGate{session: session}, dedup.New(5*time.Minute), repo, nil, testLogger())

	svc.HandleEvent(context.Background(), matchedEvent(studentID, time.Now()))
	svc.HandleEvent(context.Background(), matchedEvent(studentID, time.Now()))

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "CreateWithSyncEntry", 1)
}

func TestHandleEvent_StorageFailureRollsBackDedup(t *testing.T) {
	studentID := uuid.New()
	session := &domain.Session{ID: uuid.New(), Status: domain.SessionActive}

	repo := new(MockAttendanceRepository)
	repo.On("CreateWithSyncEntry", mock.Anything, mock.Anything).
		Return(domain.ErrInternal).Once()
	repo.On("CreateWithSyncEntry", mock.Anything, mock.Anything).
		Return(nil).Once()

	svc := NewService(&stubGate{session: session}, dedup.New(5*time.Minute), repo, nil, testLogger())

	svc.HandleEvent(context.Background(), matchedEvent(studentID, time.Now()))
	assert.Equal(t, 0, svc.TrackedIdentities())

	svc.HandleEvent(context.Background(), matchedEvent(studentID, time.Now()))
	assert.Equal(t, 1, svc.TrackedIdentities())

	repo.AssertNumberOfCalls(t, "CreateWithSyncEntry", 2)
}

func TestListForSession(t *testing.T) {
	session := &domain.Session{ID: uuid.New(), Status: domain.SessionEnded}
	records := []domain.AttendanceRecord{
		{ID: uuid.New(), SessionID: session.ID, StudentID: uuid.New()},
		{ID: uuid.New(), SessionID: session.ID, StudentID: uuid.New()},
	}

	repo := new(MockAttendanceRepository)
	repo.On("ListBySession", mock.Anything, session.ID).Return(records, nil)

	svc := NewService(&stubGate{}, dedup.New(5*time.Minute), repo, nil, testLogger())

	summary, err := svc.ListForSession(context.Background(), session)
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Len(t, summary.Records, 2)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, confidence(0))
	assert.Equal(t, 0.5, confidence(10))
	assert.Greater(t, confidence(5), confidence(20))
	assert.Equal(t, 1.0, confidence(-3))
}
