package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncStatus tracks how far an attendance record has travelled towards the
// external system of record.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// AttendanceRecord is one accepted presence observation. Immutable after
// creation except for sync status transitions; never deleted by the pipeline.
type AttendanceRecord struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	StudentID  uuid.UUID  `json:"student_id"`
	MarkedAt   time.Time  `json:"marked_at"`
	Confidence float64    `json:"confidence"`
	SyncStatus SyncStatus `json:"sync_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IdempotencyKey identifies this record at the external sync target, so a
// replayed upsert lands on the same remote row instead of duplicating it.
func (r *AttendanceRecord) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%d", r.StudentID, r.SessionID, r.MarkedAt.UTC().Unix())
}

// SyncEntry is one pending export in the durable queue. Created in the same
// transaction as its attendance record; removed from the pending set only
// when the target confirms receipt, or parked as failed after the retry
// budget is exhausted. Never silently dropped.
type SyncEntry struct {
	ID             uuid.UUID  `json:"id"`
	RecordID       uuid.UUID  `json:"record_id"`
	IdempotencyKey string     `json:"idempotency_key"`
	Status         SyncStatus `json:"status"`
	Attempts       int        `json:"attempts"`
	NextAttemptAt  time.Time  `json:"next_attempt_at"`
	LastError      *string    `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

// SyncJob is a due queue entry joined with the record fields the external
// target needs. Produced by the queue repository for the drainer.
type SyncJob struct {
	Entry       SyncEntry
	StudentID   uuid.UUID
	SessionID   uuid.UUID
	SessionName string
	MarkedAt    time.Time
	Confidence  float64
}

// SyncStats summarizes queue health for the status endpoint.
type SyncStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}
