// Package recorder runs the voice journal's microphone flow: one recording
// at a time, finalized into a WAV clip, with the microphone released on every
// way out (stop, stream error, teardown).
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	Recording
	Stopping
	Recorded
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Recorded:
		return "recorded"
	default:
		return "idle"
	}
}

// Clip is a finished recording.
type Clip struct {
	Data     []byte
	MIME     string
	Duration time.Duration
	Format   Format
}

type Recorder struct {
	capture Capture
	format  Format
	log     *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   State
	stream  Stream
	cancel  context.CancelFunc
	done    chan struct{}
	pcm     []byte
	started time.Time
	clip    *Clip
	failed  chan error
	// stopErr is a stream error that arrived while Stop was finishing
	stopErr error
}

func New(c Capture, f Format, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if f.BitDepth == 0 {
		f.BitDepth = 16
	}
	return &Recorder{
		capture: c,
		format:  f,
		log:     log,
		now:     time.Now,
		failed:  make(chan error, 1),
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Failed delivers stream errors that aborted a recording. Only the most
// recent undelivered failure is kept.
func (r *Recorder) Failed() <-chan error { return r.failed }

// Start opens the microphone and begins collecting audio. Any finished but
// unsaved clip is discarded.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording || r.state == Stopping {
		return ErrAlreadyRecording
	}

	cctx, cancel := context.WithCancel(ctx)
	stream, err := r.capture.Open(cctx, r.format)
	if err != nil {
		cancel()
		r.log.Warn("microphone unavailable", "error", err)
		return fmt.Errorf("open microphone: %w", err)
	}

	r.state = Recording
	r.stream = stream
	r.cancel = cancel
	r.pcm = nil
	r.clip = nil
	r.stopErr = nil
	r.started = r.now()
	r.done = make(chan struct{})
	go r.collect(cctx, stream, r.done)

	r.log.Debug("recording started", "rate", r.format.SampleRate, "channels", r.format.Channels)
	return nil
}

func (r *Recorder) collect(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)
	chunks := stream.Chunks()
	errs := stream.Errors()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				r.pendingError(errs)
				return
			}
			r.append(chunk)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.fail(err)
			return
		case <-ctx.Done():
			// pick up whatever the device already handed over
			r.drain(chunks)
			r.pendingError(errs)
			return
		}
	}
}

func (r *Recorder) drain(chunks <-chan []byte) {
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			r.append(chunk)
		default:
			return
		}
	}
}

// pendingError reports an error the stream raised before it went quiet.
func (r *Recorder) pendingError(errs <-chan error) {
	if errs == nil {
		return
	}
	select {
	case err, ok := <-errs:
		if ok {
			r.fail(err)
		}
	default:
	}
}

func (r *Recorder) append(chunk []byte) {
	r.mu.Lock()
	if r.state == Recording || r.state == Stopping {
		r.pcm = append(r.pcm, chunk...)
	}
	r.mu.Unlock()
}

// fail aborts an active recording back to idle; no partial clip survives.
// While stopping, the error is left for Stop to return.
func (r *Recorder) fail(err error) {
	r.mu.Lock()
	if r.state == Stopping {
		if r.stopErr == nil {
			r.stopErr = err
		}
		r.mu.Unlock()
		return
	}
	if r.state != Recording {
		r.mu.Unlock()
		return
	}
	r.releaseLocked()
	r.state = Idle
	r.pcm = nil
	r.mu.Unlock()

	r.log.Error("recording aborted", "error", err)
	select {
	case <-r.failed:
	default:
	}
	r.failed <- err
}

// Stop ends the recording and returns the finalized clip.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.state = Stopping
	r.releaseLocked()
	done := r.done
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Stopping {
		// torn down while finishing
		return nil, ErrNotRecording
	}
	pcm := r.pcm
	r.pcm = nil
	if err := r.stopErr; err != nil {
		r.stopErr = nil
		r.state = Idle
		r.log.Error("recording aborted while stopping", "error", err)
		return nil, fmt.Errorf("finish recording: %w", err)
	}
	if len(pcm) == 0 {
		r.state = Idle
		return nil, ErrEmptyRecording
	}
	data, err := EncodeWAV(pcm, r.format)
	if err != nil {
		r.state = Idle
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	r.clip = &Clip{
		Data:     data,
		MIME:     "audio/wav",
		Duration: PCMDuration(len(pcm), r.format),
		Format:   r.format,
	}
	r.state = Recorded
	r.log.Debug("recording finished", "duration", r.clip.Duration, "bytes", len(data))
	return r.clip, nil
}

// Clip returns the finished recording, if any.
func (r *Recorder) Clip() *Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// Discard drops a finished clip and returns to idle.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Recorded {
		r.state = Idle
		r.clip = nil
	}
}

// Elapsed is the running time of the current recording, or the length of
// the finished clip.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case Recording, Stopping:
		return r.now().Sub(r.started)
	case Recorded:
		return r.clip.Duration
	default:
		return 0
	}
}

// Close tears down any recording in progress and drops the clip. It is safe
// to call at any time and more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.releaseLocked()
	done := r.done
	r.state = Idle
	r.pcm = nil
	r.clip = nil
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// releaseLocked stops every track of the current stream. Must hold r.mu.
func (r *Recorder) releaseLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.stream == nil {
		return
	}
	for _, t := range r.stream.Tracks() {
		t.Stop()
	}
	r.stream = nil
}

// PCMDuration is the playing time of n bytes of PCM in format f.
func PCMDuration(n int, f Format) time.Duration {
	bps := f.bytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
