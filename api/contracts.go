package emucore

// CPU is the instruction-execution component composed into a core. A CPU is
// created against the board that owns its memory map and is never shared
// between cores.
type CPU interface {
	// Reset returns the register file to its power-on state.
	Reset()

	// Step executes the next instruction and returns the number of cycles
	// consumed. Memory-mapped side effects on the board happen synchronously
	// within the call.
	Step() int
}

// Board is the peripheral and memory-map component composed into a core.
type Board interface {
	// Reset returns peripheral and RAM state to power-on defaults.
	// Loaded ROM content is preserved.
	Reset()

	// LoadROM installs a game image. The board keeps its own reference to
	// the slice; callers must not mutate it afterwards.
	LoadROM(rom []byte) error

	// Tick advances time-driven peripherals (video beam, timers) by the
	// given number of CPU cycles.
	Tick(cycles int)

	// VideoDimensions returns the platform's native output resolution.
	VideoDimensions() (width, height int)

	// CyclesPerFrame returns the fixed number of CPU cycles in one video
	// frame for this platform.
	CyclesPerFrame() int
}

// Serializer captures and restores complete board state. Boards implement
// this to enable save states and state-equivalence checks.
type Serializer interface {
	// Serialize captures the complete emulated state.
	Serialize() ([]byte, error)

	// Deserialize restores state from previously serialized data.
	Deserialize(data []byte) error
}

// BatteryBacked enables persistence of battery-backed save memory.
type BatteryBacked interface {
	// HasBattery reports whether the loaded ROM uses battery-backed save.
	HasBattery() bool

	// LoadBattery installs previously saved battery memory.
	LoadBattery(data []byte) error

	// Battery returns a copy of the current battery memory contents.
	Battery() []byte
}

// VideoSource exposes the board's rendered output as RGBA pixel data.
type VideoSource interface {
	// Framebuffer returns the current frame as RGBA pixel data.
	Framebuffer() []byte

	// FramebufferStride returns bytes per row in the framebuffer.
	FramebufferStride() int
}

// AudioSource exposes the board's audio output for the frame just run.
type AudioSource interface {
	// AudioSamples returns stereo 16-bit PCM samples for the frame.
	AudioSamples() []int16

	// SampleRate returns the output sample rate in Hz.
	SampleRate() int
}
