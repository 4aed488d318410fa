package pipeline

import (
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

// Status is the snapshot reported by the monitoring endpoint.
type Status struct {
	State           State   `json:"state"`
	FPS             float64 `json:"fps"`
	FramesObserved  uint64  `json:"frames_observed"`
	FramesProcessed uint64  `json:"frames_processed"`
	FacesDetected   uint64  `json:"faces_detected"`
	EventsEmitted   uint64  `json:"events_emitted"`
	ProviderErrors  uint64  `json:"provider_errors"`
	LastError       string  `json:"last_error,omitempty"`
}

// FrameSnapshot is the most recent processed frame, kept for the preview
// stream so the HTTP side never touches the camera directly.
type FrameSnapshot struct {
	Frame      []byte
	Detections []provider.DetectedFace
	CapturedAt time.Time
}

// stateTracker centralizes the mutable loop state behind one mutex so the
// frame loop and the HTTP handlers never race.
type stateTracker struct {
	mu sync.RWMutex

	state           State
	lastError       string
	framesObserved  uint64
	framesProcessed uint64
	facesDetected   uint64
	eventsEmitted   uint64
	providerErrors  uint64

	windowStart  time.Time
	windowFrames uint64
	fps          float64

	snapshot *FrameSnapshot
}

func newStateTracker() *stateTracker {
	return &stateTracker{
		state:       StateStopped,
		windowStart: time.Now(),
	}
}

func (t *stateTracker) setState(state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	if err != nil {
		t.lastError = err.Error()
	}
	if state == StateRunning {
		t.lastError = ""
		t.windowStart = time.Now()
		t.windowFrames = 0
	}
	if state != StateRunning {
		t.fps = 0
	}
}

// observeFrame counts an arrived frame and returns its sequence number.
func (t *stateTracker) observeFrame() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.framesObserved++
	t.windowFrames++

	if elapsed := time.Since(t.windowStart); elapsed >= time.Second {
		t.fps = float64(t.windowFrames) / elapsed.Seconds()
		t.windowStart = time.Now()
		t.windowFrames = 0
	}

	return t.framesObserved
}

func (t *stateTracker) observeProcessed(frame []byte, detections []provider.DetectedFace, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.framesProcessed++
	t.facesDetected += uint64(len(detections))
	t.snapshot = &FrameSnapshot{
		Frame:      frame,
		Detections: detections,
		CapturedAt: at,
	}
}

func (t *stateTracker) observeEvent() {
	t.mu.Lock()
	t.eventsEmitted++
	t.mu.Unlock()
}

func (t *stateTracker) observeProviderError(err error) {
	t.mu.Lock()
	t.providerErrors++
	t.lastError = err.Error()
	t.mu.Unlock()
}

func (t *stateTracker) status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Status{
		State:           t.state,
		FPS:             t.fps,
		FramesObserved:  t.framesObserved,
		FramesProcessed: t.framesProcessed,
		FacesDetected:   t.facesDetected,
		EventsEmitted:   t.eventsEmitted,
		ProviderErrors:  t.providerErrors,
		LastError:       t.lastError,
	}
}

func (t *stateTracker) latest() *FrameSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}
