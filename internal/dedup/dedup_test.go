package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

func event(studentID uuid.UUID, at time.Time) *domain.RecognitionEvent {
	templateID := uuid.New()
	return &domain.RecognitionEvent{
		StudentID:  &studentID,
		TemplateID: &templateID,
		Distance:   12.0,
		ObservedAt: at,
	}
}

func session(id uuid.UUID) *domain.Session {
	return &domain.Session{ID: id, Status: domain.SessionActive}
}

func TestObserve_CooldownWindow(t *testing.T) {
	d := New(5 * time.Minute)
	studentID := uuid.New()
	s := session(uuid.New())
	t0 := time.Now().UTC()

	// First sighting marks attendance.
	assert.Equal(t, Accepted, d.Observe(event(studentID, t0), s))

	// Four minutes later: still inside the window.
	assert.Equal(t, Suppressed, d.Observe(event(studentID, t0.Add(4*time.Minute)), s))

	// Six minutes later: window elapsed, marks again.
	assert.Equal(t, Accepted, d.Observe(event(studentID, t0.Add(6*time.Minute)), s))
}

func TestObserve_NoSession(t *testing.T) {
	d := New(5 * time.Minute)
	assert.Equal(t, NoSession, d.Observe(event(uuid.New(), time.Now()), nil))
	assert.Equal(t, 0, d.TrackedCount())
}

func TestObserve_Unmatched(t *testing.T) {
	d := New(5 * time.Minute)
	s := session(uuid.New())

	unmatched := &domain.RecognitionEvent{Distance: 42, ObservedAt: time.Now()}
	assert.Equal(t, Unmatched, d.Observe(unmatched, s))
	assert.Equal(t, 0, d.TrackedCount())
}

func TestObserve_IndependentIdentities(t *testing.T) {
	d := New(5 * time.Minute)
	s := session(uuid.New())
	now := time.Now().UTC()

	assert.Equal(t, Accepted, d.Observe(event(uuid.New(), now), s))
	assert.Equal(t, Accepted, d.Observe(event(uuid.New(), now), s))
	assert.Equal(t, 2, d.TrackedCount())
}

func TestObserve_SessionChangeResetsState(t *testing.T) {
	d := New(5 * time.Minute)
	studentID := uuid.New()
	now := time.Now().UTC()

	first := session(uuid.New())
	assert.Equal(t, Accepted, d.Observe(event(studentID, now), first))
	assert.Equal(t, Suppressed, d.Observe(event(studentID, now.Add(time.Minute)), first))

	// New session: mid-cooldown state must not carry over.
	second := session(uuid.New())
	assert.Equal(t, Accepted, d.Observe(event(studentID, now.Add(2*time.Minute)), second))
}

func TestForget_AllowsImmediateRetry(t *testing.T) {
	d := New(5 * time.Minute)
	studentID := uuid.New()
	s := session(uuid.New())
	now := time.Now().UTC()

	assert.Equal(t, Accepted, d.Observe(event(studentID, now), s))

	d.Forget(studentID, s.ID)
	assert.Equal(t, Accepted, d.Observe(event(studentID, now.Add(time.Second)), s))
}

func TestForget_IgnoresStaleSession(t *testing.T) {
	d := New(5 * time.Minute)
	studentID := uuid.New()
	s := session(uuid.New())
	now := time.Now().UTC()

	assert.Equal(t, Accepted, d.Observe(event(studentID, now), s))

	// Forget scoped to a different session leaves current state alone.
	d.Forget(studentID, uuid.New())
	assert.Equal(t, Suppressed, d.Observe(event(studentID, now.Add(time.Second)), s))
}

func TestReset(t *testing.T) {
	d := New(5 * time.Minute)
	s := session(uuid.New())
	now := time.Now().UTC()

	d.Observe(event(uuid.New(), now), s)
	d.Observe(event(uuid.New(), now), s)
	assert.Equal(t, 2, d.TrackedCount())

	d.Reset()
	assert.Equal(t, 0, d.TrackedCount())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "suppressed", Suppressed.String())
	assert.Equal(t, "no_session", NoSession.String())
	assert.Equal(t, "unmatched", Unmatched.String())
}
