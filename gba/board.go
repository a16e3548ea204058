package gba

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	emucore "github.com/halverson/corekit/api"
)

const (
	screenWidth  = 240
	screenHeight = 160

	cyclesPerLine  = 1232
	linesPerFrame  = 228
	cyclesPerFrame = cyclesPerLine * linesPerFrame // 280896

	sampleRate      = 32768
	samplesPerFrame = sampleRate / 60
)

// ErrBadImage is returned for images that fail header validation
var ErrBadImage = errors.New("gba: image failed header validation")

// serialization version tag
const stateVersion = 1

// SaveType identifies the cartridge save memory detected in an image.
type SaveType int

const (
	SaveNone SaveType = iota
	SaveSRAM
	SaveFlash
	SaveEEPROM
)

// saveMarkers are the library ID strings linked into images that use each
// save memory type. Scanning for them is the standard detection heuristic.
var saveMarkers = []struct {
	marker string
	kind   SaveType
}{
	{"SRAM_V", SaveSRAM},
	{"FLASH_V", SaveFlash},
	{"FLASH512_V", SaveFlash},
	{"FLASH1M_V", SaveFlash},
	{"EEPROM_V", SaveEEPROM},
}

// Board models the AGB board: cartridge, external and internal work RAM,
// palette, VRAM, OAM, the IO register file and save memory. Video timing
// advances by CPU cycles via Tick; one line every 1232 cycles, 228 lines
// per frame.
type Board struct {
	rom     []byte
	ewram   [256 * 1024]byte
	iwram   [32 * 1024]byte
	palette [1024]byte
	vram    [96 * 1024]byte
	oam     [1024]byte
	sram    [64 * 1024]byte
	io      [1024]byte

	saveType SaveType

	vcount    int
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
	b.saveType = detectSaveType(rom)
	return nil
}

// detectSaveType scans the image for save library ID strings.
func detectSaveType(rom []byte) SaveType {
	for _, m := range saveMarkers {
		if bytes.Contains(rom, []byte(m.marker)) {
			return m.kind
		}
	}
	return SaveNone
}

// Reset returns RAM, IO and video timing to power-on defaults. The
// cartridge image and detected save type are preserved; save memory is
// cleared (autoloading a save restores it).
func (b *Board) Reset() {
	b.ewram = [256 * 1024]byte{}
	b.iwram = [32 * 1024]byte{}
	b.palette = [1024]byte{}
	b.vram = [96 * 1024]byte{}
	b.oam = [1024]byte{}
	b.sram = [64 * 1024]byte{}
	b.io = [1024]byte{}
	b.vcount = 0
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

// SaveMemoryType returns the save memory detected in the loaded image.
func (b *Board) SaveMemoryType() SaveType {
	return b.saveType
}

// Tick advances the video beam. VCOUNT increments every line; the visible
// frame is rendered when the beam enters vblank at line 160.
func (b *Board) Tick(cycles int) {
	b.lineClock += cycles
	for b.lineClock >= cyclesPerLine {
		b.lineClock -= cyclesPerLine
		b.vcount++
		switch b.vcount {
		case screenHeight:
			b.renderFrame()
			b.mixFrame()
		case linesPerFrame:
			b.vcount = 0
		}
	}
}

// Read8 returns the byte at a bus address.
func (b *Board) Read8(addr uint32) byte {
	region, off := addr>>24, addr&0x00FFFFFF
	switch region {
	case 0x02:
		return b.ewram[off%uint32(len(b.ewram))]
	case 0x03:
		return b.iwram[off%uint32(len(b.iwram))]
	case 0x04:
		if off < uint32(len(b.io)) {
			if off == 0x06 { // VCOUNT
				return byte(b.vcount)
			}
			return b.io[off]
		}
		return 0
	case 0x05:
		return b.palette[off%uint32(len(b.palette))]
	case 0x06:
		return b.vram[off%uint32(len(b.vram))]
	case 0x07:
		return b.oam[off%uint32(len(b.oam))]
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D:
		romOff := addr & 0x01FFFFFF
		if int(romOff) < len(b.rom) {
			return b.rom[romOff]
		}
		return 0
	case 0x0E, 0x0F:
		return b.sram[off%uint32(len(b.sram))]
	default:
		return 0
	}
}

// Write8 stores a byte at a bus address. Writes to ROM are ignored.
func (b *Board) Write8(addr uint32, v byte) {
	region, off := addr>>24, addr&0x00FFFFFF
	switch region {
	case 0x02:
		b.ewram[off%uint32(len(b.ewram))] = v
	case 0x03:
		b.iwram[off%uint32(len(b.iwram))] = v
	case 0x04:
		if off < uint32(len(b.io)) {
			b.io[off] = v
		}
	case 0x05:
		b.palette[off%uint32(len(b.palette))] = v
	case 0x06:
		b.vram[off%uint32(len(b.vram))] = v
	case 0x07:
		b.oam[off%uint32(len(b.oam))] = v
	case 0x0E, 0x0F:
		b.sram[off%uint32(len(b.sram))] = v
	}
}

// Read32 returns the little-endian word at an aligned bus address.
func (b *Board) Read32(addr uint32) uint32 {
	addr &^= 3
	return uint32(b.Read8(addr)) |
		uint32(b.Read8(addr+1))<<8 |
		uint32(b.Read8(addr+2))<<16 |
		uint32(b.Read8(addr+3))<<24
}

// Write32 stores a little-endian word at an aligned bus address.
func (b *Board) Write32(addr uint32, v uint32) {
	addr &^= 3
	b.Write8(addr, byte(v))
	b.Write8(addr+1, byte(v>>8))
	b.Write8(addr+2, byte(v>>16))
	b.Write8(addr+3, byte(v>>24))
}

// renderFrame decodes VRAM as a mode-3 bitmap (240x160 BGR555) into the
// RGBA framebuffer.
func (b *Board) renderFrame() {
	for i := 0; i < screenWidth*screenHeight; i++ {
		px := uint16(b.vram[i*2]) | uint16(b.vram[i*2+1])<<8
		p := i * 4
		b.frame[p] = byte(px&0x1F) << 3
		b.frame[p+1] = byte(px>>5&0x1F) << 3
		b.frame[p+2] = byte(px>>10&0x1F) << 3
		b.frame[p+3] = 0xFF
	}
}

// mixFrame fills the per-frame sample buffer. Output is a square wave
// gated by the master enable bit of SOUNDCNT_X; everything else is
// silence.
func (b *Board) mixFrame() {
	if b.io[0x84]&0x80 == 0 {
		for i := range b.samples {
			b.samples[i] = 0
		}
		return
	}
	vol := int16(b.io[0x80]&0x07) << 11
	period := 32 + int(b.io[0x60])
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

// HasBattery implements emucore.BatteryBacked.
func (b *Board) HasBattery() bool {
	return b.saveType != SaveNone
}

// LoadBattery implements emucore.BatteryBacked.
func (b *Board) LoadBattery(data []byte) error {
	if len(data) > len(b.sram) {
		return fmt.Errorf("gba: battery data too large: %d bytes", len(data))
	}
	copy(b.sram[:], data)
	return nil
}

// Battery implements emucore.BatteryBacked.
func (b *Board) Battery() []byte {
	out := make([]byte, len(b.sram))
	copy(out, b.sram[:])
	return out
}

// Serialize implements emucore.Serializer.
func (b *Board) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(stateVersion)
	binary.Write(&buf, binary.LittleEndian, int32(b.vcount))
	binary.Write(&buf, binary.LittleEndian, int32(b.lineClock))
	buf.Write(b.ewram[:])
	buf.Write(b.iwram[:])
	buf.Write(b.palette[:])
	buf.Write(b.vram[:])
	buf.Write(b.oam[:])
	buf.Write(b.sram[:])
	buf.Write(b.io[:])
	return buf.Bytes(), nil
}

// Deserialize implements emucore.Serializer.
func (b *Board) Deserialize(data []byte) error {
	buf := bytes.NewReader(data)
	version, err := buf.ReadByte()
	if err != nil {
		return fmt.Errorf("gba: short state data: %w", err)
	}
	if version != stateVersion {
		return fmt.Errorf("gba: unknown state version %d", version)
	}
	var vcount, lineClock int32
	if err := binary.Read(buf, binary.LittleEndian, &vcount); err != nil {
		return fmt.Errorf("gba: short state data: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &lineClock); err != nil {
		return fmt.Errorf("gba: short state data: %w", err)
	}
	b.vcount = int(vcount)
	b.lineClock = int(lineClock)
	for _, region := range [][]byte{
		b.ewram[:], b.iwram[:], b.palette[:], b.vram[:], b.oam[:],
		b.sram[:], b.io[:],
	} {
		if _, err := io.ReadFull(buf, region); err != nil {
			return fmt.Errorf("gba: short state data: %w", err)
		}
	}
	return nil
}

var _ emucore.Board = (*Board)(nil)
var _ emucore.Serializer = (*Board)(nil)
var _ emucore.BatteryBacked = (*Board)(nil)
var _ emucore.VideoSource = (*Board)(nil)
var _ emucore.AudioSource = (*Board)(nil)
