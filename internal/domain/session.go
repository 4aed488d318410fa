package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of an attendance session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is a time-bounded attendance window. At most one session is active
// system-wide; attendance records may only be created while their session is
// active. Sessions never reopen.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
