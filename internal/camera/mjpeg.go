package camera

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// maxFrameSize bounds a single JPEG part so a corrupt boundary cannot make
// the reader swallow the whole stream.
const maxFrameSize = 8 << 20

// MJPEGSource streams frames from an HTTP camera publishing
// multipart/x-mixed-replace (the usual IP-camera / ustreamer format).
type MJPEGSource struct {
	url        string
	httpClient *http.Client
	guard      guard
}

func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		httpClient: &http.Client{
			// No overall timeout: the response body is an endless stream.
			Timeout: 0,
		},
	}
}

// Acquire opens the stream and takes exclusive ownership of the camera.
func (s *MJPEGSource) Acquire(ctx context.Context) (Handle, error) {
	if err := s.guard.acquire(); err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.url, nil)
	if err != nil {
		cancel()
		s.guard.release()
		return nil, fmt.Errorf("create stream request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		s.guard.release()
		return nil, domain.ErrCameraDisconnected.WithError(err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		s.guard.release()
		return nil, domain.ErrCameraDisconnected.WithError(
			fmt.Errorf("camera returned status %d", resp.StatusCode))
	}

	boundary, err := streamBoundary(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		cancel()
		s.guard.release()
		return nil, domain.ErrCameraDisconnected.WithError(err)
	}

	return &mjpegHandle{
		source: s,
		resp:   resp,
		reader: multipart.NewReader(resp.Body, boundary),
		cancel: cancel,
	}, nil
}

type mjpegHandle struct {
	source  *MJPEGSource
	resp    *http.Response
	reader  *multipart.Reader
	cancel  context.CancelFunc
	release sync.Once
}

func (h *mjpegHandle) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A caller deadline maps onto the stream read by cancelling the whole
	// stream context; a half-read frame is useless anyway.
	if deadline, ok := ctx.Deadline(); ok {
		timer := time.AfterFunc(time.Until(deadline), h.cancel)
		defer timer.Stop()
	}

	part, err := h.reader.NextPart()
	if err != nil {
		return nil, domain.ErrCameraDisconnected.WithError(err)
	}
	defer part.Close()

	frame, err := io.ReadAll(io.LimitReader(part, maxFrameSize))
	if err != nil {
		return nil, domain.ErrCameraDisconnected.WithError(err)
	}

	if len(frame) == 0 {
		return nil, domain.ErrCameraDisconnected.WithError(fmt.Errorf("empty frame part"))
	}

	return frame, nil
}

// Release closes the stream and frees the camera. Idempotent.
func (h *mjpegHandle) Release() {
	h.release.Do(func() {
		h.cancel()
		h.resp.Body.Close()
		h.source.guard.release()
	})
}

func streamBoundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parse stream content type: %w", err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("unexpected stream content type %q", mediaType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("stream content type missing boundary")
	}

	return boundary, nil
}
