package core

import emucore "github.com/halverson/corekit/api"

// engine advances emulated time at instruction, frame or continuous
// granularity by delegating to the composed CPU and board. Cycles run past
// a frame boundary are carried into the next frame so that frame stepping
// is exactly reproducible.
type engine struct {
	cpu   emucore.CPU
	board emucore.Board

	// cycles already run toward the current frame
	frameCycles int
}

// step advances execution by one instruction.
func (e *engine) step() {
	n := e.cpu.Step()
	e.board.Tick(n)
	e.frameCycles += n
}

// runFrame advances execution until one video frame's worth of cycles has
// elapsed.
func (e *engine) runFrame() {
	target := e.board.CyclesPerFrame()
	for e.frameCycles < target {
		e.step()
	}
	e.frameCycles -= target
}

// runLoop advances frame by frame until the caller-owned stop condition
// reports false. The loop body holds no concurrency primitives; pacing and
// input polling belong to the host.
func (e *engine) runLoop(running func() bool) {
	for running() {
		e.runFrame()
	}
}

// reset discards the partial-frame cycle carry.
func (e *engine) reset() {
	e.frameCycles = 0
}
