package ws

import (
	"time"
)

type EventType string

const (
	EventRecognition      EventType = "recognition.observed"
	EventAttendanceMarked EventType = "attendance.marked"
	EventSessionStarted   EventType = "session.started"
	EventSessionEnded     EventType = "session.ended"
	EventPipelineState    EventType = "pipeline.state"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
