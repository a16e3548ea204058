// Package core implements the emulation core lifecycle: locating a core
// for an input file, composing the platform's CPU and board models behind
// the platform-agnostic contract, loading content with its companion save
// and patch files, and advancing execution by instruction, frame or
// continuous run loop.
package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	emucore "github.com/halverson/corekit/api"
	"github.com/halverson/corekit/content"
)

// ErrUninitialized is returned for content operations on a core whose
// Init has not succeeded
var ErrUninitialized = errors.New("core not initialized")

// ErrClosed is returned when operating on a core after Close
var ErrClosed = errors.New("core closed")

// ErrIncompatibleImage is returned when a loaded file is not a valid image
// for the core's platform
var ErrIncompatibleImage = errors.New("image incompatible with core platform")

// Core is one emulation session bound to a single platform. It exclusively
// owns its CPU and board state; a Core must be driven from one goroutine
// at a time, but independent Cores share nothing and may run concurrently.
type Core struct {
	entry emucore.Entry

	cpu    emucore.CPU
	board  emucore.Board
	engine engine

	initialized bool
	closed      bool

	image  content.Image
	loaded bool
}

// New returns an uninitialized Core for the given platform. The bool is
// false if the platform is not registered in this build.
func New(p emucore.Platform) (*Core, bool) {
	entry, ok := emucore.Lookup(p)
	if !ok {
		return nil, false
	}
	return &Core{entry: entry}, true
}

// Init composes the platform's CPU and board models into the core and
// brings it to a runnable state. Init is idempotent: on an initialized
// core it is a no-op reporting the prior outcome, and it never tears down
// or re-creates existing state.
func (c *Core) Init() error {
	if c.closed {
		return ErrClosed
	}
	if c.initialized {
		return nil
	}

	board := c.entry.NewBoard()
	if board == nil {
		return fmt.Errorf("platform %s returned no board", c.entry.Platform)
	}
	cpu := c.entry.NewCPU(board)
	if cpu == nil {
		return fmt.Errorf("platform %s returned no cpu", c.entry.Platform)
	}

	board.Reset()
	cpu.Reset()

	c.board = board
	c.cpu = cpu
	c.engine = engine{cpu: cpu, board: board}
	c.initialized = true
	return nil
}

// Close releases the core's execution state. It is safe to call multiple
// times; only the first call releases anything.
func (c *Core) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.initialized = false
	c.loaded = false
	c.cpu = nil
	c.board = nil
	c.engine = engine{}
	c.image = content.Image{}
	return nil
}

// Platform returns the platform tag the core was located for. The tag is
// fixed at creation and never changes.
func (c *Core) Platform() emucore.Platform {
	return c.entry.Platform
}

// DesiredVideoDimensions returns the platform's native output resolution.
// The pair is stable for the life of an initialized core; before Init it
// is zero.
func (c *Core) DesiredVideoDimensions() (width, height int) {
	if !c.initialized {
		return 0, 0
	}
	return c.board.VideoDimensions()
}

// LoadFile loads a game image into an initialized core and resets
// execution state to the post-power-on baseline. On failure the core's
// prior state is unchanged.
func (c *Core) LoadFile(path string) error {
	if !c.initialized {
		return ErrUninitialized
	}

	img, err := content.LoadImage(path, c.entry.Extensions)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if !c.entry.Probe(img.Data) {
		return fmt.Errorf("%w: %s", ErrIncompatibleImage, path)
	}
	if err := c.board.LoadROM(img.Data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	c.image = img
	c.loaded = true
	c.resetState()
	return nil
}

// AutoloadSave looks for a companion save file (<image>.sav) beside the
// loaded content and installs it into the board's battery memory. Absence
// of a save, or any load failure, reports false; this is never fatal.
func (c *Core) AutoloadSave() bool {
	if !c.initialized || !c.loaded {
		return false
	}
	battery, ok := c.board.(emucore.BatteryBacked)
	if !ok || !battery.HasBattery() {
		return false
	}
	path, ok := content.FindCompanion(c.image.SourcePath, ".sav")
	if !ok {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return battery.LoadBattery(data) == nil
}

// AutoloadPatch looks for a companion patch file (<image>.ips or
// <image>.ups) beside the loaded content, applies it over the image and
// reloads the board. Absence of a patch, or any apply failure, reports
// false and leaves the core unchanged. Battery memory survives the
// reload, so AutoloadSave and AutoloadPatch may run in either order.
func (c *Core) AutoloadPatch() bool {
	if !c.initialized || !c.loaded {
		return false
	}
	path, ok := content.FindCompanion(c.image.SourcePath, ".ips", ".ups")
	if !ok {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	patched, err := content.ApplyPatch(c.image.Data, data)
	if err != nil {
		return false
	}

	// the reset below clears cartridge RAM; carry any installed save across
	var battery []byte
	if b, ok := c.board.(emucore.BatteryBacked); ok && b.HasBattery() {
		battery = b.Battery()
	}

	if err := c.board.LoadROM(patched); err != nil {
		return false
	}
	c.image.Data = patched
	c.resetState()

	if battery != nil {
		if b, ok := c.board.(emucore.BatteryBacked); ok && b.HasBattery() {
			b.LoadBattery(battery)
		}
	}
	return true
}

// Reset re-derives a fresh runnable state from power-on defaults while
// preserving loaded content. The result is indistinguishable from a fresh
// Init plus LoadFile of the same content.
func (c *Core) Reset() {
	if !c.initialized {
		return
	}
	c.resetState()
}

func (c *Core) resetState() {
	c.board.Reset()
	c.cpu.Reset()
	c.engine.reset()
}

// Step advances execution by one instruction. A no-op before Init.
func (c *Core) Step() {
	if !c.initialized {
		return
	}
	c.engine.step()
}

// RunFrame advances execution until exactly one video frame has been
// produced. Two calls from identical prior state produce identical
// resulting state. A no-op before Init.
func (c *Core) RunFrame() {
	if !c.initialized {
		return
	}
	c.engine.runFrame()
}

// RunLoop advances frame by frame until the caller-owned running predicate
// reports false. RunLoop blocks the calling goroutine; the core holds no
// stop condition of its own.
func (c *Core) RunLoop(running func() bool) {
	if !c.initialized || running == nil {
		return
	}
	c.engine.runLoop(running)
}

// Video returns the board's video output capability, if the platform
// provides one.
func (c *Core) Video() (emucore.VideoSource, bool) {
	v, ok := c.board.(emucore.VideoSource)
	return v, ok
}

// Audio returns the board's audio output capability, if the platform
// provides one.
func (c *Core) Audio() (emucore.AudioSource, bool) {
	a, ok := c.board.(emucore.AudioSource)
	return a, ok
}

// Battery returns the board's battery-save capability, if the platform
// provides one.
func (c *Core) Battery() (emucore.BatteryBacked, bool) {
	b, ok := c.board.(emucore.BatteryBacked)
	return b, ok
}

// SaveState captures the complete emulated state (CPU and board) into one
// buffer. Both components must implement emucore.Serializer.
func (c *Core) SaveState() ([]byte, error) {
	if !c.initialized {
		return nil, ErrUninitialized
	}
	cpuSer, ok := c.cpu.(emucore.Serializer)
	if !ok {
		return nil, fmt.Errorf("platform %s cpu does not serialize", c.entry.Platform)
	}
	boardSer, ok := c.board.(emucore.Serializer)
	if !ok {
		return nil, fmt.Errorf("platform %s board does not serialize", c.entry.Platform)
	}

	cpuState, err := cpuSer.Serialize()
	if err != nil {
		return nil, err
	}
	boardState, err := boardSer.Serialize()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 8+len(cpuState)+len(boardState))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(cpuState)))
	out = append(out, cpuState...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(boardState)))
	out = append(out, boardState...)
	return out, nil
}

// LoadState restores state previously captured by SaveState.
func (c *Core) LoadState(data []byte) error {
	if !c.initialized {
		return ErrUninitialized
	}
	cpuSer, cpuOK := c.cpu.(emucore.Serializer)
	boardSer, boardOK := c.board.(emucore.Serializer)
	if !cpuOK || !boardOK {
		return fmt.Errorf("platform %s does not serialize", c.entry.Platform)
	}

	if len(data) < 4 {
		return fmt.Errorf("short state data: %d bytes", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if len(data) < n+4 {
		return fmt.Errorf("truncated cpu state")
	}
	cpuState := data[:n]
	data = data[n:]

	m := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if len(data) < m {
		return fmt.Errorf("truncated board state")
	}
	boardState := data[:m]

	if err := cpuSer.Deserialize(cpuState); err != nil {
		return err
	}
	return boardSer.Deserialize(boardState)
}
