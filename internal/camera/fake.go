package camera

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// FakeSource feeds scripted frames for tests and camera-less development.
// It honors the same exclusive-ownership contract as the real source.
type FakeSource struct {
	guard  guard
	frames chan frameOrErr
}

type frameOrErr struct {
	frame []byte
	err   error
}

func NewFakeSource(buffer int) *FakeSource {
	return &FakeSource{
		frames: make(chan frameOrErr, buffer),
	}
}

// Push queues a frame for the next NextFrame call.
func (s *FakeSource) Push(frame []byte) {
	s.frames <- frameOrErr{frame: frame}
}

// PushError queues a stream error, e.g. to script a camera disconnect.
func (s *FakeSource) PushError(err error) {
	s.frames <- frameOrErr{err: err}
}

// Disconnect scripts a camera loss on the next read.
func (s *FakeSource) Disconnect() {
	s.PushError(domain.ErrCameraDisconnected)
}

func (s *FakeSource) Acquire(ctx context.Context) (Handle, error) {
	if err := s.guard.acquire(); err != nil {
		return nil, err
	}
	return &fakeHandle{source: s}, nil
}

// Held reports whether a handle is currently live.
func (s *FakeSource) Held() bool {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return s.guard.held
}

type fakeHandle struct {
	source  *FakeSource
	release sync.Once
}

func (h *fakeHandle) NextFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item := <-h.source.frames:
		if item.err != nil {
			return nil, item.err
		}
		return item.frame, nil
	}
}

func (h *fakeHandle) Release() {
	h.release.Do(func() {
		h.source.guard.release()
	})
}
