package dedup

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// Decision is the deduplicator's verdict on one recognition event.
type Decision int

const (
	// Accepted means this sighting should become an attendance record.
	Accepted Decision = iota
	// Suppressed means the identity was marked recently; expected, not an error.
	Suppressed
	// NoSession means no session is active; the event is discarded.
	NoSession
	// Unmatched means the event carried no identity; state is untouched.
	Unmatched
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Suppressed:
		return "suppressed"
	case NoSession:
		return "no_session"
	case Unmatched:
		return "unmatched"
	}
	return "unknown"
}

// Deduplicator decides whether a recognition event becomes a new attendance
// record or is suppressed inside the cooldown window. A stationary face in
// front of the camera produces events at frame rate; the cooldown turns that
// firehose into at most one record per window, while re-entry after a real
// absence still registers.
//
// State is per (identity, session): switching sessions resets everything to
// never-seen, even mid-cooldown, so sessions cannot leak suppression into
// each other.
type Deduplicator struct {
	cooldown time.Duration

	mu        sync.Mutex
	sessionID uuid.UUID
	lastSeen  map[uuid.UUID]time.Time // student id -> last accepted time
}

func New(cooldown time.Duration) *Deduplicator {
	return &Deduplicator{
		cooldown: cooldown,
		lastSeen: make(map[uuid.UUID]time.Time),
	}
}

// Observe classifies one event against the given active session (nil when
// idle). On Accepted the acceptance is recorded immediately so a burst of
// frames of the same face cannot double-accept.
func (d *Deduplicator) Observe(event *domain.RecognitionEvent, session *domain.Session) Decision {
	if session == nil {
		return NoSession
	}

	if !event.Matched() {
		return Unmatched
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.rescopeLocked(session.ID)

	studentID := *event.StudentID
	if last, ok := d.lastSeen[studentID]; ok {
		if event.ObservedAt.Sub(last) < d.cooldown {
			return Suppressed
		}
	}

	d.lastSeen[studentID] = event.ObservedAt
	return Accepted
}

// Forget rolls back an acceptance whose record could not be stored, so the
// identity retries on the next sighting instead of waiting out a cooldown
// for a record that never existed.
func (d *Deduplicator) Forget(studentID, sessionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessionID == sessionID {
		delete(d.lastSeen, studentID)
	}
}

// Reset drops all state, e.g. when a session ends.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	d.sessionID = uuid.Nil
	d.lastSeen = make(map[uuid.UUID]time.Time)
	d.mu.Unlock()
}

// Cooldown exposes the configured window for status reporting.
func (d *Deduplicator) Cooldown() time.Duration {
	return d.cooldown
}

// TrackedCount reports how many identities currently hold cooldown state.
func (d *Deduplicator) TrackedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}

// rescopeLocked drops state built for a different session. The map scales
// with identities seen in one session, and dies with the session, so growth
// stays bounded.
func (d *Deduplicator) rescopeLocked(sessionID uuid.UUID) {
	if d.sessionID != sessionID {
		d.sessionID = sessionID
		d.lastSeen = make(map[uuid.UUID]time.Time)
	}
}
