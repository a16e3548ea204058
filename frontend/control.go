// Package frontend provides the host glue that drives a core in real
// time: the caller-owned run/pause/stop condition, a framebuffer shared
// between the emulation goroutine and the display thread, audio playback,
// WAV capture and screenshots. The core itself holds no concurrency
// primitives; everything here is host property.
package frontend

import (
	"sync"
	"time"
)

// Control coordinates pause, resume and stop between the display thread
// and the emulation goroutine. ShouldRun doubles as the external stop
// condition handed to Core.RunLoop.
type Control struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	running  bool
	ackCh    chan struct{}
}

// NewControl creates a control in the running state.
func NewControl() *Control {
	return &Control{
		running: true,
		ackCh:   make(chan struct{}, 1),
	}
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// acknowledges.
func (c *Control) RequestPause() {
	c.mu.Lock()
	if c.paused || c.pauseReq || !c.running {
		c.mu.Unlock()
		return
	}
	c.pauseReq = true
	c.mu.Unlock()

	<-c.ackCh
}

// Resume tells the emulation goroutine to continue.
func (c *Control) Resume() {
	c.mu.Lock()
	c.pauseReq = false
	c.paused = false
	c.mu.Unlock()
}

// CheckPause is called by the emulation goroutine between frames. If a
// pause has been requested it acknowledges and waits until resumed or
// stopped. Returns false when the goroutine should exit.
func (c *Control) CheckPause() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	if !c.pauseReq {
		c.mu.Unlock()
		return true
	}

	c.paused = true
	c.mu.Unlock()

	select {
	case c.ackCh <- struct{}{}:
	default:
	}

	for {
		c.mu.Lock()
		if !c.running {
			c.mu.Unlock()
			return false
		}
		if !c.pauseReq {
			c.paused = false
			c.mu.Unlock()
			return true
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the emulation goroutine to exit. Also clears any pending
// pause so CheckPause unblocks.
func (c *Control) Stop() {
	c.mu.Lock()
	c.running = false
	c.pauseReq = false
	c.mu.Unlock()
}

// ShouldRun reports whether the emulation goroutine should keep running.
func (c *Control) ShouldRun() bool {
	c.mu.Lock()
	r := c.running
	c.mu.Unlock()
	return r
}

// IsPaused reports whether the emulation goroutine is currently paused.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	p := c.paused
	c.mu.Unlock()
	return p
}
