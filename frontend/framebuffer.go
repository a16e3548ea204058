package frontend

import "sync"

// SharedFramebuffer holds pixel data written by the emulation goroutine
// and read by the display thread. Separate write and read buffers let the
// emulation goroutine publish a new frame while the display uses the read
// copy.
type SharedFramebuffer struct {
	mu          sync.Mutex
	writePixels []byte
	readPixels  []byte
	width       int
	height      int
}

// NewSharedFramebuffer creates a framebuffer for a core's native output
// resolution (4 bytes per pixel).
func NewSharedFramebuffer(width, height int) *SharedFramebuffer {
	size := width * height * 4
	return &SharedFramebuffer{
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
		width:       width,
		height:      height,
	}
}

// Update publishes a frame from the emulation goroutine.
func (sf *SharedFramebuffer) Update(pixels []byte) {
	sf.mu.Lock()
	n := len(sf.writePixels)
	if n > len(pixels) {
		n = len(pixels)
	}
	copy(sf.writePixels[:n], pixels[:n])
	sf.mu.Unlock()
}

// Read returns a snapshot of the latest frame. The returned slice is the
// read buffer, safe to use without holding any lock until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, width, height int) {
	sf.mu.Lock()
	copy(sf.readPixels, sf.writePixels)
	sf.mu.Unlock()
	return sf.readPixels, sf.width, sf.height
}
