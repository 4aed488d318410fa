package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/camera"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/matcher"
	"github.com/saturnino-fabrica-de-software/presenca/internal/provider"
)

// State describes where the frame loop currently stands.
type State string

const (
	// StateRunning means frames are flowing from the camera.
	StateRunning State = "running"
	// StateDegraded means the camera is lost and the loop is reconnecting.
	StateDegraded State = "degraded"
	// StateStopped means Run has returned.
	StateStopped State = "stopped"
)

// EventSink receives every recognition event the pipeline emits, matched or
// not. attendance.Service is the production sink.
type EventSink interface {
	HandleEvent(ctx context.Context, event *domain.RecognitionEvent)
}

// Options carries the tunables the frame loop needs.
type Options struct {
	// SampleEveryNthFrame selects which frames get the full detect/embed
	// treatment. Skipped frames still count toward FPS.
	SampleEveryNthFrame int
	// MinQualityScore drops detections too blurry or small to embed reliably.
	MinQualityScore float64
	// ReconnectMax caps the backoff between camera reconnection attempts.
	ReconnectMax time.Duration
}

// Pipeline owns the capture loop: acquire the camera, pull frames, detect,
// embed, match, and hand events to the sink. It reconnects with backoff when
// the camera drops and keeps the latest frame around for the live preview.
type Pipeline struct {
	source  camera.Source
	faces   provider.FaceProvider
	matcher *matcher.Matcher
	sink    EventSink
	logger  *slog.Logger
	opts    Options

	state *stateTracker
}

func New(
	source camera.Source,
	faces provider.FaceProvider,
	m *matcher.Matcher,
	sink EventSink,
	logger *slog.Logger,
	opts Options,
) *Pipeline {
	if opts.SampleEveryNthFrame < 1 {
		opts.SampleEveryNthFrame = 1
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30 * time.Second
	}

	return &Pipeline{
		source:  source,
		faces:   faces,
		matcher: m,
		sink:    sink,
		logger:  logger,
		opts:    opts,
		state:   newStateTracker(),
	}
}

// Run drives the loop until ctx is cancelled. The camera handle is released
// on every exit path, including panics in the provider.
func (p *Pipeline) Run(ctx context.Context) {
	defer p.state.setState(StateStopped, nil)

	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		handle, err := p.source.Acquire(ctx)
		if err != nil {
			p.state.setState(StateDegraded, err)
			p.logger.Warn("camera unavailable, retrying",
				slog.Duration("backoff", backoff),
				slog.Any("error", err),
			)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, p.opts.ReconnectMax)
			continue
		}

		p.state.setState(StateRunning, nil)
		p.logger.Info("camera acquired, frame loop running")
		backoff = time.Second

		err = p.consume(ctx, handle)
		handle.Release()

		if ctx.Err() != nil {
			return
		}

		p.state.setState(StateDegraded, err)
		p.logger.Warn("camera stream lost",
			slog.Any("error", err),
		)
	}
}

// consume pulls frames from one handle until the stream breaks or ctx ends.
func (p *Pipeline) consume(ctx context.Context, handle camera.Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("frame loop panic recovered", slog.Any("panic", r))
			err = domain.ErrInternal
		}
	}()

	for {
		frame, frameErr := handle.NextFrame(ctx)
		if frameErr != nil {
			return frameErr
		}

		seq := p.state.observeFrame()
		if seq%uint64(p.opts.SampleEveryNthFrame) != 0 {
			continue
		}

		p.processFrame(ctx, frame, seq)
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame []byte, seq uint64) {
	detections, err := p.faces.DetectFaces(ctx, frame)
	if err != nil {
		p.state.observeProviderError(err)
		p.logger.Warn("face detection failed",
			slog.Uint64("frame_seq", seq),
			slog.Any("error", err),
		)
		return
	}

	now := time.Now().UTC()
	kept := detections[:0:0]
	for _, face := range detections {
		if face.QualityScore < p.opts.MinQualityScore {
			continue
		}
		kept = append(kept, face)
	}

	p.state.observeProcessed(frame, kept, now)

	for _, face := range kept {
		embedding, err := p.faces.Embed(ctx, frame, face.BoundingBox)
		if err != nil {
			p.state.observeProviderError(err)
			p.logger.Warn("embedding extraction failed",
				slog.Uint64("frame_seq", seq),
				slog.Any("error", err),
			)
			continue
		}

		event := &domain.RecognitionEvent{
			Distance:     -1,
			QualityScore: face.QualityScore,
			BoundingBox:  face.BoundingBox,
			FrameSeq:     seq,
			ObservedAt:   now,
		}
		if match := p.matcher.Match(embedding); match != nil {
			event.StudentID = &match.StudentID
			event.TemplateID = &match.TemplateID
			event.Distance = match.Distance
		}

		p.state.observeEvent()
		p.sink.HandleEvent(ctx, event)
	}
}

// Status returns the current loop state and counters.
func (p *Pipeline) Status() Status {
	return p.state.status()
}

// LatestFrame returns the last processed frame with its detections, or nil
// if none has arrived yet.
func (p *Pipeline) LatestFrame() *FrameSnapshot {
	return p.state.latest()
}

// sleep waits for d or until ctx ends; it reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
