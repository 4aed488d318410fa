package camera

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// Handle is a live grip on the camera. Exactly one exists per source at a
// time; Release must run on every exit path and is safe to call twice.
type Handle interface {
	// NextFrame returns the next JPEG frame, or ErrCameraDisconnected when
	// the stream is lost.
	NextFrame(ctx context.Context) ([]byte, error)
	Release()
}

// Source hands out exclusive camera handles. A second Acquire while one
// handle is live fails with ErrResourceBusy and leaves the holder untouched.
type Source interface {
	Acquire(ctx context.Context) (Handle, error)
}

// guard enforces the single-holder contract for a source.
type guard struct {
	mu   sync.Mutex
	held bool
}

func (g *guard) acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return domain.ErrResourceBusy
	}
	g.held = true
	return nil
}

func (g *guard) release() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}
