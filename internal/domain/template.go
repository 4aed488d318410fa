package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template is one enrolled face embedding for a student. A student may own
// several templates (multiple photos, multiple angles); matching considers
// all of them and reports the best-scoring one. Templates are immutable:
// re-enrollment supersedes old rows instead of mutating them.
type Template struct {
	ID           uuid.UUID `json:"id"`
	StudentID    uuid.UUID `json:"student_id"`
	Embedding    []float32 `json:"-"`
	QualityScore float64   `json:"quality_score"`
	SourceRef    string    `json:"source_ref,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Match is the result of resolving a probe vector against the enrolled set.
type Match struct {
	StudentID  uuid.UUID `json:"student_id"`
	TemplateID uuid.UUID `json:"template_id"`
	Distance   float64   `json:"distance"`
}
