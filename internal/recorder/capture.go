package recorder

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoDevice         = errors.New("no microphone found")
	ErrUnsupported      = errors.New("audio recording not supported")

	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("not recording")
	ErrEmptyRecording   = errors.New("nothing was recorded")
)

// Format describes interleaved signed little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is 44.1 kHz mono 16-bit.
var DefaultFormat = Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Track is one live input held by a stream.
type Track interface {
	Stop()
	Live() bool
}

// Stream is an open microphone. Chunks is closed once every track has
// stopped or the context passed to Open is done.
type Stream interface {
	Chunks() <-chan []byte
	Errors() <-chan error
	Tracks() []Track
}

// Capture opens microphone streams.
type Capture interface {
	Open(ctx context.Context, f Format) (Stream, error)
}

// Reason returns the message shown to the user for a capture failure.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone access was denied. Allow this terminal to use the microphone and try again."
	case errors.Is(err, ErrNoDevice):
		return "No microphone was found. Connect one and try again."
	case errors.Is(err, ErrUnsupported):
		return "Audio recording is not supported on this system."
	case errors.Is(err, ErrAlreadyRecording):
		return "A recording is already in progress."
	case errors.Is(err, ErrEmptyRecording):
		return "Nothing was recorded. Try speaking a little longer."
	default:
		return "Could not access the microphone: " + err.Error()
	}
}
