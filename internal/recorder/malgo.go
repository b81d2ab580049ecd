package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// MalgoCapture opens the default capture device through miniaudio.
type MalgoCapture struct {
	log *slog.Logger
}

func NewMalgoCapture(log *slog.Logger) *MalgoCapture {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &MalgoCapture{log: log}
}

func (c *MalgoCapture) Open(ctx context.Context, f Format) (Stream, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d-bit capture", ErrUnsupported, f.BitDepth)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		c.log.Debug("miniaudio", "message", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, classify(err)
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		freeContext(mctx)
		return nil, classify(err)
	}
	if len(infos) == 0 {
		freeContext(mctx)
		return nil, ErrNoDevice
	}

	s := &malgoStream{
		chunks: make(chan []byte, 256),
		errs:   make(chan error, 1),
		log:    c.log,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		freeContext(mctx)
		return nil, classify(err)
	}

	t := &malgoTrack{device: device, mctx: mctx, stream: s, done: make(chan struct{})}
	t.live.Store(true)
	s.track = t

	if err := device.Start(); err != nil {
		t.Stop()
		return nil, classify(err)
	}

	go func() {
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.done:
		}
	}()
	return s, nil
}

func freeContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}

// classify maps miniaudio failures onto the package's capture errors.
func classify(err error) error {
	switch {
	case errors.Is(err, malgo.ErrAccessDenied):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, malgo.ErrNoDevice), errors.Is(err, malgo.ErrDoesNotExist),
		errors.Is(err, malgo.ErrFailedToOpenBackendDevice):
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	case errors.Is(err, malgo.ErrNoBackend), errors.Is(err, malgo.ErrFormatNotSupported),
		errors.Is(err, malgo.ErrDeviceTypeNotSupported), errors.Is(err, malgo.ErrNotImplemented),
		errors.Is(err, malgo.ErrFailedToInitBackend):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case strings.Contains(msg, "no device") || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return err
}

type malgoStream struct {
	chunks chan []byte
	errs   chan error
	log    *slog.Logger
	track  *malgoTrack

	closeOnce sync.Once
	dropped   atomic.Int64
}

func (s *malgoStream) Chunks() <-chan []byte { return s.chunks }
func (s *malgoStream) Errors() <-chan error  { return s.errs }
func (s *malgoStream) Tracks() []Track       { return []Track{s.track} }

func (s *malgoStream) onData(_, in []byte, _ uint32) {
	if len(in) == 0 {
		return
	}
	chunk := make([]byte, len(in))
	copy(chunk, in)
	select {
	case s.chunks <- chunk:
	default:
		s.dropped.Add(1)
	}
}

// onStop fires when the device stops, including unplugging.
func (s *malgoStream) onStop() {
	if s.track != nil && s.track.Live() && !s.track.stopping.Load() {
		select {
		case s.errs <- fmt.Errorf("%w: device stopped unexpectedly", ErrNoDevice):
		default:
		}
	}
}

func (s *malgoStream) close() {
	s.closeOnce.Do(func() {
		if n := s.dropped.Load(); n > 0 {
			s.log.Warn("audio chunks dropped", "count", n)
		}
		close(s.chunks)
	})
}

type malgoTrack struct {
	device *malgo.Device
	mctx   *malgo.AllocatedContext
	stream *malgoStream

	live     atomic.Bool
	stopping atomic.Bool
	once     sync.Once
	done     chan struct{}
}

func (t *malgoTrack) Live() bool { return t.live.Load() }

// Stop halts and frees the device. Uninit waits for in-flight callbacks, so
// the chunk channel can be closed safely afterwards.
func (t *malgoTrack) Stop() {
	t.once.Do(func() {
		t.stopping.Store(true)
		_ = t.device.Stop()
		t.device.Uninit()
		freeContext(t.mctx)
		t.live.Store(false)
		t.stream.close()
		close(t.done)
	})
}
