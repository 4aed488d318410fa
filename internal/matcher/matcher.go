package matcher

import (
	"math"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// TemplateSource supplies the current enrolled template set.
type TemplateSource interface {
	Snapshot() []domain.Template
}

// Matcher resolves probe vectors against the enrolled set by linear scan.
// Cost is O(number of templates) per probe, which is the scalability ceiling
// of this design: it holds comfortably for a classroom-sized enrollment but
// an index would be needed well before tens of thousands of templates.
type Matcher struct {
	source    TemplateSource
	threshold float64
	margin    float64
}

// New creates a matcher. threshold is the maximum L2 distance accepted as a
// match; margin is the minimum gap required between the best and second-best
// distinct identities for the result to count as unambiguous.
func New(source TemplateSource, threshold, margin float64) *Matcher {
	return &Matcher{
		source:    source,
		threshold: threshold,
		margin:    margin,
	}
}

// Match returns the identity owning the nearest template, or nil when the
// probe matches nothing or matches ambiguously. Pure function of the probe
// and the current snapshot; no side effects.
//
// Decision rule: accept only if the best distance is under the threshold AND
// the best distance of every other identity trails it by at least the
// ambiguity margin. Two enrolled identities crowding the same probe means
// returning nobody, not guessing.
func (m *Matcher) Match(probe []float32) *domain.Match {
	templates := m.source.Snapshot()
	if len(templates) == 0 || len(probe) == 0 {
		return nil
	}

	best := domain.Match{Distance: math.Inf(1)}
	runnerUp := math.Inf(1) // best distance among identities other than best.StudentID

	for i := range templates {
		tpl := &templates[i]
		if len(tpl.Embedding) != len(probe) {
			continue
		}

		d := euclidean(probe, tpl.Embedding)

		switch {
		case d < best.Distance:
			if tpl.StudentID != best.StudentID {
				runnerUp = best.Distance
			}
			best = domain.Match{
				StudentID:  tpl.StudentID,
				TemplateID: tpl.ID,
				Distance:   d,
			}
		case tpl.StudentID != best.StudentID && d < runnerUp:
			runnerUp = d
		}
	}

	if math.IsInf(best.Distance, 1) || best.StudentID == uuid.Nil {
		return nil
	}

	if best.Distance >= m.threshold {
		return nil
	}

	if runnerUp-best.Distance < m.margin {
		return nil
	}

	return &best
}

// Threshold exposes the configured acceptance distance for status reporting.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Margin exposes the configured ambiguity margin for status reporting.
func (m *Matcher) Margin() float64 { return m.margin }

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
