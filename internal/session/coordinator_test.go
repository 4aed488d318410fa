package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// MockSessionRepository is a mock implementation of SessionRepositoryInterface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	if args.Error(0) == nil {
		session.ID = uuid.New()
		session.Status = domain.SessionActive
		session.StartedAt = time.Now().UTC()
	}
	return args.Error(0)
}

func (m *MockSessionRepository) GetActive(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) EndActive(ctx context.Context) (*domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := NewCoordinator(repo, testLogger())

	session, err := c.Start(context.Background(), "Turma A")
	require.NoError(t, err)
	assert.Equal(t, "Turma A", session.Name)
	assert.Equal(t, domain.SessionActive, session.Status)
	require.NotNil(t, c.Current())
	assert.Equal(t, session.ID, c.Current().ID)
}

func TestStart_SecondSessionRejected(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	c := NewCoordinator(repo, testLogger())

	_, err := c.Start(context.Background(), "Turma A")
	require.NoError(t, err)

	_, err = c.Start(context.Background(), "Turma B")
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyActive)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestEnd(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := NewCoordinator(repo, testLogger())
	started, err := c.Start(context.Background(), "Turma A")
	require.NoError(t, err)

	endedAt := time.Now().UTC()
	endedSession := *started
	endedSession.Status = domain.SessionEnded
	endedSession.EndedAt = &endedAt
	repo.On("EndActive", mock.Anything).Return(&endedSession, nil)

	ended, err := c.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, ended.Status)
	assert.Nil(t, c.Current())
}

func TestEnd_IdleIsIdempotent(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("EndActive", mock.Anything).Return(nil, nil)

	c := NewCoordinator(repo, testLogger())

	ended, err := c.End(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ended)
}

func TestRecover_ClosesStaleSession(t *testing.T) {
	stale := &domain.Session{
		ID:     uuid.New(),
		Name:   "interrupted",
		Status: domain.SessionEnded,
	}
	repo := new(MockSessionRepository)
	repo.On("EndActive", mock.Anything).Return(stale, nil)

	c := NewCoordinator(repo, testLogger())
	require.NoError(t, c.Recover(context.Background()))

	// A recovered process starts idle; the stale session does not resume.
	assert.Nil(t, c.Current())
}

func TestRecover_NothingToClose(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("EndActive", mock.Anything).Return(nil, nil)

	c := NewCoordinator(repo, testLogger())
	require.NoError(t, c.Recover(context.Background()))
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	c := NewCoordinator(repo, testLogger())
	_, err := c.Start(context.Background(), "Turma A")
	require.NoError(t, err)

	snapshot := c.Current()
	snapshot.Name = "mutated"
	assert.Equal(t, "Turma A", c.Current().Name)
}

func TestGetByID_InvalidID(t *testing.T) {
	repo := new(MockSessionRepository)
	c := NewCoordinator(repo, testLogger())

	_, err := c.GetByID(context.Background(), "not-a-uuid")

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestGetByID_NotFound(t *testing.T) {
	id := uuid.New()
	repo := new(MockSessionRepository)
	repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrSessionNotFound)

	c := NewCoordinator(repo, testLogger())

	_, err := c.GetByID(context.Background(), id.String())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
