package frontend

import (
	"errors"
	"time"

	"github.com/halverson/corekit/core"
)

// targetFPS paces the emulation goroutine. Both supported platforms
// output close enough to 60Hz for ticker pacing.
const targetFPS = 60

// Session drives one core in real time on a dedicated goroutine. The loop
// body is repeated RunFrame calls plus host pacing; the stop and pause
// conditions live in the session's Control, never in the core.
type Session struct {
	Core    *core.Core
	Control *Control
	Frames  *SharedFramebuffer

	audio    *AudioPlayer
	recorder *WAVRecorder

	done chan struct{}
}

// NewSession prepares a session for an initialized core with loaded
// content.
func NewSession(c *core.Core) (*Session, error) {
	w, h := c.DesiredVideoDimensions()
	if w == 0 || h == 0 {
		return nil, errors.New("session: core not initialized")
	}
	return &Session{
		Core:    c,
		Control: NewControl(),
		Frames:  NewSharedFramebuffer(w, h),
		done:    make(chan struct{}),
	}, nil
}

// EnableAudio attaches an audio player at the core's sample rate. Cores
// without an audio source keep running silently.
func (s *Session) EnableAudio() error {
	src, ok := s.Core.Audio()
	if !ok {
		return nil
	}
	player, err := NewAudioPlayer(src.SampleRate())
	if err != nil {
		return err
	}
	s.audio = player
	return nil
}

// EnableWAVCapture attaches a WAV recorder at the core's sample rate.
func (s *Session) EnableWAVCapture(path string) {
	if src, ok := s.Core.Audio(); ok {
		s.recorder = NewWAVRecorder(path, src.SampleRate())
	}
}

// Start launches the emulation goroutine.
func (s *Session) Start() {
	go s.run()
}

// Stop signals the emulation goroutine and waits for it to exit, then
// releases audio resources and finishes any WAV capture.
func (s *Session) Stop() error {
	s.Control.Stop()
	<-s.done

	if s.audio != nil {
		s.audio.Close()
	}
	if s.recorder != nil {
		return s.recorder.Close()
	}
	return nil
}

func (s *Session) run() {
	defer close(s.done)

	video, hasVideo := s.Core.Video()
	audioSrc, hasAudio := s.Core.Audio()

	ticker := time.NewTicker(time.Second / targetFPS)
	defer ticker.Stop()

	for s.Control.CheckPause() {
		s.Core.RunFrame()

		if hasVideo {
			s.Frames.Update(video.Framebuffer())
		}
		if hasAudio {
			samples := audioSrc.AudioSamples()
			if s.audio != nil {
				s.audio.QueueSamples(samples)
			}
			if s.recorder != nil {
				s.recorder.Append(samples)
			}
		}

		<-ticker.C
	}
}
