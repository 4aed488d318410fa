package domain

import (
	"time"

	"github.com/google/uuid"
)

// BoundingBox locates a detected face within a frame, in pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RecognitionEvent is one identity resolution produced by the frame
// pipeline. Ephemeral: consumed immediately by the deduplicator and the
// dashboard feed, never persisted.
type RecognitionEvent struct {
	StudentID    *uuid.UUID  `json:"student_id,omitempty"`
	TemplateID   *uuid.UUID  `json:"template_id,omitempty"`
	Distance     float64     `json:"distance"`
	QualityScore float64     `json:"quality_score"`
	BoundingBox  BoundingBox `json:"bounding_box"`
	FrameSeq     uint64      `json:"frame_seq"`
	ObservedAt   time.Time   `json:"observed_at"`
}

// Matched reports whether the probe resolved to an enrolled identity.
func (e *RecognitionEvent) Matched() bool {
	return e.StudentID != nil
}
