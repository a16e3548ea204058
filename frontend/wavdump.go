package frontend

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVRecorder accumulates a core's PCM output in memory and writes it to
// disk as a 16-bit stereo WAV file on Close. Suitable for capture and
// regression comparison, not for unbounded recording.
type WAVRecorder struct {
	path       string
	sampleRate int
	samples    []int
}

// NewWAVRecorder creates a recorder targeting the given file path.
func NewWAVRecorder(path string, sampleRate int) *WAVRecorder {
	return &WAVRecorder{
		path:       path,
		sampleRate: sampleRate,
	}
}

// Append buffers one frame's worth of stereo samples.
func (w *WAVRecorder) Append(samples []int16) {
	for _, s := range samples {
		w.samples = append(w.samples, int(s))
	}
}

// Close encodes the buffered samples and writes the WAV file.
func (w *WAVRecorder) Close() (rerr error) {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("wav capture: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wav capture: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, w.sampleRate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  w.sampleRate,
		},
		Data:           w.samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav capture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav capture: %w", err)
	}
	return nil
}
