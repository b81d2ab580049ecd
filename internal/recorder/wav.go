package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites the header sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}

func (b *seekBuffer) Bytes() []byte { return b.buf }

// EncodeWAV wraps little-endian 16-bit PCM in a WAV container.
func EncodeWAV(pcm []byte, f Format) ([]byte, error) {
	if f.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, f.BitDepth)
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, f.SampleRate, f.BitDepth, f.Channels, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: f.SampleRate, NumChannels: f.Channels},
		SourceBitDepth: f.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}
	return out.Bytes(), nil
}

// SaveClip writes clip to dir/name.wav and returns the path.
func SaveClip(dir, name string, clip *Clip) (string, error) {
	if clip == nil || len(clip.Data) == 0 {
		return "", ErrEmptyRecording
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}
	path := filepath.Join(dir, name+".wav")
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil {
		return "", fmt.Errorf("write clip: %w", err)
	}
	return path, nil
}

// RemoveClip deletes a saved clip. A missing file is not an error.
func RemoveClip(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove clip: %w", err)
	}
	return nil
}
