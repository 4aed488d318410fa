package cloudsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Target is the remote attendance sheet. Upsert must be idempotent on the
// key: delivering the same row twice leaves exactly one row remote.
type Target interface {
	Upsert(ctx context.Context, row *Row) error
}

// Row is the payload the target receives for one attendance record.
type Row struct {
	IdempotencyKey string    `json:"idempotency_key"`
	StudentID      uuid.UUID `json:"student_id"`
	SessionID      uuid.UUID `json:"session_id"`
	SessionName    string    `json:"session_name"`
	MarkedAt       time.Time `json:"marked_at"`
	Confidence     float64   `json:"confidence"`
}

// RetryableError signals a transient target failure worth retrying.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable sync error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError signals the target rejected the row for good; retrying the same
// payload cannot succeed.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal sync error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
