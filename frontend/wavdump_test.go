package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWAVRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	rec := NewWAVRecorder(path, 32768)

	rec.Append([]int16{100, -100, 200, -200})
	rec.Append([]int16{300, -300})

	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}

	if dec.SampleRate != 32768 {
		t.Errorf("sample rate: expected 32768, got %d", dec.SampleRate)
	}
	if dec.NumChans != 2 {
		t.Errorf("channels: expected 2, got %d", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Errorf("bit depth: expected 16, got %d", dec.BitDepth)
	}

	want := []int{100, -100, 200, -200, 300, -300}
	if len(buf.Data) != len(want) {
		t.Fatalf("sample count: expected %d, got %d", len(want), len(buf.Data))
	}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, buf.Data[i])
		}
	}
}

func TestWAVRecorder_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	rec := NewWAVRecorder(path, 44100)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("no output file written: %v", err)
	}
}

func TestWAVRecorder_BadPath(t *testing.T) {
	rec := NewWAVRecorder("/nonexistent/dir/out.wav", 44100)
	if err := rec.Close(); err == nil {
		t.Error("expected error for unwritable path")
	}
}
