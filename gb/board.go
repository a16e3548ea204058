// Package gb provides the Game Boy platform model: an SM83 CPU model and a
// board exposing the DMG memory map, line-based video timing and
// battery-backed cartridge RAM.
package gb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	emucore "github.com/halverson/corekit/api"
)

const (
	screenWidth  = 160
	screenHeight = 144

	cyclesPerLine  = 456
	linesPerFrame  = 154
	cyclesPerFrame = cyclesPerLine * linesPerFrame // 70224

	sampleRate      = 44100
	samplesPerFrame = sampleRate / 60
)

// Cartridge header offsets
const (
	hdrLogo     = 0x0104
	hdrCartType = 0x0147
	hdrChecksum = 0x014D
)

// ErrBadImage is returned for images that fail header validation
var ErrBadImage = errors.New("gb: image failed header validation")

// serialization version tag
const stateVersion = 1

// Board models the DMG board: cartridge, video RAM, work RAM, high RAM,
// cartridge RAM, OAM and the IO register file. Video timing advances by
// CPU cycles via Tick; one line every 456 cycles, 154 lines per frame.
type Board struct {
	rom     []byte
	vram    [0x2000]byte
	wram    [0x2000]byte
	cartRAM [0x2000]byte
	oam     [0xA0]byte
	hram    [0x7F]byte
	io      [0x80]byte
	ie      byte

	hasBattery bool

	ly        byte
	lineClock int

	frame   []byte
	samples []int16
}

// NewBoard constructs an empty board with no cartridge inserted.
func NewBoard() *Board {
	return &Board{
		frame:   make([]byte, screenWidth*screenHeight*4),
		samples: make([]int16, samplesPerFrame*2),
	}
}

// LoadROM installs a cartridge image. The image must carry a valid header;
// on failure the board is left unchanged.
func (b *Board) LoadROM(rom []byte) error {
	if !Probe(rom) {
		return ErrBadImage
	}
	b.rom = rom
	b.hasBattery = batteryBacked(rom[hdrCartType])
	return nil
}

// Reset returns RAM, OAM, IO and video timing to power-on defaults. The
// cartridge image and its battery detection are preserved.
func (b *Board) Reset() {
	b.vram = [0x2000]byte{}
	b.wram = [0x2000]byte{}
	b.cartRAM = [0x2000]byte{}
	b.oam = [0xA0]byte{}
	b.hram = [0x7F]byte{}
	b.io = [0x80]byte{}
	b.ie = 0
	b.ly = 0
	b.lineClock = 0
	for i := range b.frame {
		b.frame[i] = 0
	}
	for i := range b.samples {
		b.samples[i] = 0
	}
}

// VideoDimensions implements emucore.Board.
func (b *Board) VideoDimensions() (int, int) {
	return screenWidth, screenHeight
}

// CyclesPerFrame implements emucore.Board.
func (b *Board) CyclesPerFrame() int {
	return cyclesPerFrame
}

// Tick advances the video beam. LY increments every line; the visible
// frame is rendered when the beam enters vblank at line 144.
func (b *Board) Tick(cycles int) {
	b.lineClock += cycles
	for b.lineClock >= cyclesPerLine {
		b.lineClock -= cyclesPerLine
		b.ly++
		switch b.ly {
		case screenHeight:
			b.renderFrame()
			b.mixFrame()
		case linesPerFrame:
			b.ly = 0
		}
	}
}

// Read returns the byte at a bus address.
func (b *Board) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if int(addr) < len(b.rom) {
			return b.rom[addr]
		}
		return 0xFF
	case addr < 0xA000:
		return b.vram[addr-0x8000]
	case addr < 0xC000:
		return b.cartRAM[addr-0xA000]
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00: // echo RAM
		return b.wram[addr-0xE000]
	case addr < 0xFEA0:
		return b.oam[addr-0xFE00]
	case addr < 0xFF00: // unusable region
		return 0xFF
	case addr < 0xFF80:
		if addr == 0xFF44 {
			return b.ly
		}
		return b.io[addr-0xFF00]
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ie
	}
}

// Write stores a byte at a bus address. Writes to ROM are ignored.
func (b *Board) Write(addr uint16, v byte) {
	switch {
	case addr < 0x8000:
		// MBC register space; banking is not modelled
	case addr < 0xA000:
		b.vram[addr-0x8000] = v
	case addr < 0xC000:
		b.cartRAM[addr-0xA000] = v
	case addr < 0xE000:
		b.wram[addr-0xC000] = v
	case addr < 0xFE00:
		b.wram[addr-0xE000] = v
	case addr < 0xFEA0:
		b.oam[addr-0xFE00] = v
	case addr < 0xFF00:
		// unusable region
	case addr < 0xFF80:
		b.io[addr-0xFF00] = v
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = v
	default:
		b.ie = v
	}
}

// dmgShades maps 2-bit pixel values to RGBA greys
var dmgShades = [4][3]byte{
	{0xFF, 0xFF, 0xFF},
	{0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55},
	{0x00, 0x00, 0x00},
}

// renderFrame decodes the background map at 0x9800 against 2bpp tile data
// at 0x8000 into the RGBA framebuffer. Window and sprites are not
// modelled.
func (b *Board) renderFrame() {
	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			mapIdx := 0x1800 + (y/8)*32 + x/8
			tile := int(b.vram[mapIdx])
			rowOff := tile*16 + (y%8)*2
			lo := b.vram[rowOff]
			hi := b.vram[rowOff+1]
			bit := uint(7 - x%8)
			c := (hi>>bit&1)<<1 | lo>>bit&1

			p := (y*screenWidth + x) * 4
			shade := dmgShades[c]
			b.frame[p] = shade[0]
			b.frame[p+1] = shade[1]
			b.frame[p+2] = shade[2]
			b.frame[p+3] = 0xFF
		}
	}
}

// mixFrame fills the per-frame sample buffer. Channel 1 is modelled as a
// square wave gated by the APU enable bit (NR52) with the NR12 volume
// nibble; everything else is silence.
func (b *Board) mixFrame() {
	if b.io[0x26]&0x80 == 0 {
		for i := range b.samples {
			b.samples[i] = 0
		}
		return
	}
	vol := int16(b.io[0x12]>>4) << 10
	period := 64 + int(b.io[0x13])
	for i := 0; i < samplesPerFrame; i++ {
		s := vol
		if (i/period)%2 == 0 {
			s = -vol
		}
		b.samples[i*2] = s
		b.samples[i*2+1] = s
	}
}

// Framebuffer implements emucore.VideoSource.
func (b *Board) Framebuffer() []byte {
	return b.frame
}

// FramebufferStride implements emucore.VideoSource.
func (b *Board) FramebufferStride() int {
	return screenWidth * 4
}

// AudioSamples implements emucore.AudioSource.
func (b *Board) AudioSamples() []int16 {
	return b.samples
}

// SampleRate implements emucore.AudioSource.
func (b *Board) SampleRate() int {
	return sampleRate
}

// batteryTypes lists the cartridge-type header values that include
// battery-backed RAM
var batteryTypes = map[byte]bool{
	0x03: true, 0x06: true, 0x09: true, 0x0D: true, 0x0F: true,
	0x10: true, 0x13: true, 0x1B: true, 0x1E: true, 0x22: true,
	0xFF: true,
}

func batteryBacked(cartType byte) bool {
	return batteryTypes[cartType]
}

// HasBattery implements emucore.BatteryBacked.
func (b *Board) HasBattery() bool {
	return b.hasBattery
}

// LoadBattery implements emucore.BatteryBacked. Oversized data is
// rejected; short data fills the low portion of cartridge RAM.
func (b *Board) LoadBattery(data []byte) error {
	if len(data) > len(b.cartRAM) {
		return fmt.Errorf("gb: battery data too large: %d bytes", len(data))
	}
	copy(b.cartRAM[:], data)
	return nil
}

// Battery implements emucore.BatteryBacked.
func (b *Board) Battery() []byte {
	out := make([]byte, len(b.cartRAM))
	copy(out, b.cartRAM[:])
	return out
}

// Serialize implements emucore.Serializer.
func (b *Board) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(stateVersion)
	buf.WriteByte(b.ly)
	buf.WriteByte(b.ie)
	binary.Write(&buf, binary.LittleEndian, int32(b.lineClock))
	buf.Write(b.vram[:])
	buf.Write(b.wram[:])
	buf.Write(b.cartRAM[:])
	buf.Write(b.oam[:])
	buf.Write(b.hram[:])
	buf.Write(b.io[:])
	return buf.Bytes(), nil
}

// Deserialize implements emucore.Serializer.
func (b *Board) Deserialize(data []byte) error {
	buf := bytes.NewReader(data)
	version, err := buf.ReadByte()
	if err != nil {
		return fmt.Errorf("gb: short state data: %w", err)
	}
	if version != stateVersion {
		return fmt.Errorf("gb: unknown state version %d", version)
	}
	if b.ly, err = buf.ReadByte(); err != nil {
		return fmt.Errorf("gb: short state data: %w", err)
	}
	if b.ie, err = buf.ReadByte(); err != nil {
		return fmt.Errorf("gb: short state data: %w", err)
	}
	var lineClock int32
	if err := binary.Read(buf, binary.LittleEndian, &lineClock); err != nil {
		return fmt.Errorf("gb: short state data: %w", err)
	}
	b.lineClock = int(lineClock)
	for _, region := range [][]byte{
		b.vram[:], b.wram[:], b.cartRAM[:], b.oam[:], b.hram[:], b.io[:],
	} {
		if _, err := io.ReadFull(buf, region); err != nil {
			return fmt.Errorf("gb: short state data: %w", err)
		}
	}
	return nil
}

var _ emucore.Board = (*Board)(nil)
var _ emucore.Serializer = (*Board)(nil)
var _ emucore.BatteryBacked = (*Board)(nil)
var _ emucore.VideoSource = (*Board)(nil)
var _ emucore.AudioSource = (*Board)(nil)
