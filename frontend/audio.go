package frontend

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ringBufferCapacity is roughly a quarter second of 48kHz stereo 16-bit
// audio.
const ringBufferCapacity = 48000

// oto context singleton; oto supports only one context per process
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
	otoRate     int
)

func ensureOtoContext(sampleRate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoRate = sampleRate
		<-readyChan
	})
	if otoInitErr == nil && otoRate != sampleRate {
		return nil, fmt.Errorf("audio context already open at %dHz", otoRate)
	}
	return otoCtx, otoInitErr
}

// AudioPlayer plays a core's per-frame PCM output via oto. Samples go
// through a ring buffer that oto's player pulls from; underruns produce
// silence rather than blocking the emulation goroutine.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *audioRingBuffer
	audioBytes []byte
}

// NewAudioPlayer opens audio playback at the core's sample rate.
func NewAudioPlayer(sampleRate int) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio not available: %w", err)
	}

	rb := newAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		audioBytes: make([]byte, 0, 4096),
	}, nil
}

// QueueSamples converts int16 stereo samples to bytes and hands them to
// the ring buffer.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}

	needed := len(samples) * 2
	if cap(a.audioBytes) < needed {
		a.audioBytes = make([]byte, 0, needed)
	}
	a.audioBytes = a.audioBytes[:0]
	for _, sample := range samples {
		a.audioBytes = append(a.audioBytes, byte(sample), byte(sample>>8))
	}

	a.ringBuffer.Write(a.audioBytes)
}

// BufferedBytes returns how much audio is queued, for pacing decisions.
func (a *AudioPlayer) BufferedBytes() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// Close releases the player. The oto context stays open for the process
// lifetime.
func (a *AudioPlayer) Close() {
	if a.player != nil {
		a.player.Close()
	}
}

// audioRingBuffer is a fixed-capacity byte ring. Write drops the oldest
// data on overflow; Read pads with silence on underrun so the audio
// device never stalls.
type audioRingBuffer struct {
	mu   sync.Mutex
	buf  []byte
	head int // read position
	size int // bytes buffered
}

func newAudioRingBuffer(capacity int) *audioRingBuffer {
	return &audioRingBuffer{buf: make([]byte, capacity)}
}

// Write adds data to the ring, discarding the oldest bytes if the ring is
// full.
func (rb *audioRingBuffer) Write(data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(data) > len(rb.buf) {
		data = data[len(data)-len(rb.buf):]
	}

	overflow := rb.size + len(data) - len(rb.buf)
	if overflow > 0 {
		rb.head = (rb.head + overflow) % len(rb.buf)
		rb.size -= overflow
	}

	tail := (rb.head + rb.size) % len(rb.buf)
	n := copy(rb.buf[tail:], data)
	copy(rb.buf, data[n:])
	rb.size += len(data)
}

// Read implements io.Reader for oto. Available data is returned first;
// the remainder of p is zero-filled so playback continues through
// underruns.
func (rb *audioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := rb.size
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = rb.buf[(rb.head+i)%len(rb.buf)]
	}
	rb.head = (rb.head + n) % len(rb.buf)
	rb.size -= n

	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// Buffered returns the bytes currently held in the ring.
func (rb *audioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}
