package gb

import (
	"bytes"
	"testing"
)

// makeTestROM builds a minimal cartridge image with a valid header: boot
// logo in place, the given cartridge type, and a correct header checksum.
func makeTestROM(t *testing.T, cartType byte) []byte {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom[hdrLogo:], nintendoLogo)
	rom[hdrCartType] = cartType

	var sum byte
	for _, v := range rom[0x0134:0x014D] {
		sum = sum - v - 1
	}
	rom[hdrChecksum] = sum
	return rom
}

func TestProbe(t *testing.T) {
	rom := makeTestROM(t, 0x00)
	if !Probe(rom) {
		t.Error("valid image rejected")
	}

	if Probe(rom[:0x100]) {
		t.Error("short image accepted")
	}

	badLogo := makeTestROM(t, 0x00)
	badLogo[hdrLogo] ^= 0xFF
	if Probe(badLogo) {
		t.Error("image with corrupt logo accepted")
	}

	badSum := makeTestROM(t, 0x00)
	badSum[hdrChecksum] ^= 0xFF
	if Probe(badSum) {
		t.Error("image with bad header checksum accepted")
	}
}

func TestLoadROM(t *testing.T) {
	b := NewBoard()
	rom := makeTestROM(t, 0x00)

	if err := b.LoadROM(rom); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	if b.Read(hdrLogo) != nintendoLogo[0] {
		t.Error("ROM not mapped into cartridge space")
	}

	if err := b.LoadROM(make([]byte, 0x8000)); err == nil {
		t.Error("headerless image accepted")
	}
}

func TestBatteryDetection(t *testing.T) {
	testCases := []struct {
		cartType byte
		battery  bool
	}{
		{0x00, false}, // ROM only
		{0x01, false}, // MBC1
		{0x03, true},  // MBC1+RAM+BATTERY
		{0x13, true},  // MBC3+RAM+BATTERY
		{0x1B, true},  // MBC5+RAM+BATTERY
		{0x19, false}, // MBC5
	}

	for _, tc := range testCases {
		b := NewBoard()
		if err := b.LoadROM(makeTestROM(t, tc.cartType)); err != nil {
			t.Fatalf("LoadROM failed for cart type %#02x: %v", tc.cartType, err)
		}
		if b.HasBattery() != tc.battery {
			t.Errorf("cart type %#02x: expected battery=%v", tc.cartType, tc.battery)
		}
	}
}

func TestBatteryRoundTrip(t *testing.T) {
	b := NewBoard()
	if err := b.LoadROM(makeTestROM(t, 0x03)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	save := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := b.LoadBattery(save); err != nil {
		t.Fatalf("LoadBattery failed: %v", err)
	}

	got := b.Battery()
	if !bytes.Equal(got[:4], save) {
		t.Errorf("battery contents: expected %v, got %v", save, got[:4])
	}
	if len(got) != 0x2000 {
		t.Errorf("battery size: expected 0x2000, got %#x", len(got))
	}

	if err := b.LoadBattery(make([]byte, 0x4000)); err == nil {
		t.Error("oversized battery data accepted")
	}
}

func TestLineTiming(t *testing.T) {
	b := NewBoard()

	if b.Read(0xFF44) != 0 {
		t.Fatal("LY not zero at power on")
	}

	b.Tick(cyclesPerLine - 1)
	if b.Read(0xFF44) != 0 {
		t.Error("LY advanced before the line completed")
	}
	b.Tick(1)
	if b.Read(0xFF44) != 1 {
		t.Errorf("LY after one line: expected 1, got %d", b.Read(0xFF44))
	}

	// finish the frame; LY wraps back to zero
	b.Tick(cyclesPerFrame - cyclesPerLine)
	if b.Read(0xFF44) != 0 {
		t.Errorf("LY after full frame: expected 0, got %d", b.Read(0xFF44))
	}
}

func TestMemoryMap(t *testing.T) {
	b := NewBoard()
	if err := b.LoadROM(makeTestROM(t, 0x00)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	// writes to cartridge space are ignored
	b.Write(0x0100, 0xAA)
	if b.Read(0x0100) != 0x00 {
		t.Error("ROM write was not ignored")
	}

	b.Write(0xC123, 0x42)
	if b.Read(0xC123) != 0x42 {
		t.Error("WRAM write/read failed")
	}
	if b.Read(0xE123) != 0x42 {
		t.Error("echo RAM does not mirror WRAM")
	}

	b.Write(0x8010, 0x7E)
	if b.Read(0x8010) != 0x7E {
		t.Error("VRAM write/read failed")
	}

	b.Write(0xFFFF, 0x1F)
	if b.Read(0xFFFF) != 0x1F {
		t.Error("IE write/read failed")
	}

	b.Write(0xFF80, 0x99)
	if b.Read(0xFF80) != 0x99 {
		t.Error("HRAM write/read failed")
	}
}

func TestBoardReset(t *testing.T) {
	b := NewBoard()
	if err := b.LoadROM(makeTestROM(t, 0x03)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}

	b.Write(0xC000, 0x11)
	b.Tick(cyclesPerLine * 3)

	b.Reset()

	if b.Read(0xC000) != 0 {
		t.Error("WRAM survived reset")
	}
	if b.Read(0xFF44) != 0 {
		t.Error("LY survived reset")
	}
	if b.Read(hdrLogo) != nintendoLogo[0] {
		t.Error("ROM did not survive reset")
	}
	if !b.HasBattery() {
		t.Error("battery detection did not survive reset")
	}
}

func TestBoardSerializeRoundTrip(t *testing.T) {
	b := NewBoard()
	if err := b.LoadROM(makeTestROM(t, 0x00)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	b.Write(0xC100, 0x77)
	b.Write(0x8000, 0x33)
	b.Tick(cyclesPerLine + 7)

	state, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	restored := NewBoard()
	if err := restored.LoadROM(makeTestROM(t, 0x00)); err != nil {
		t.Fatalf("LoadROM failed: %v", err)
	}
	if err := restored.Deserialize(state); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if restored.Read(0xC100) != 0x77 {
		t.Error("WRAM not restored")
	}
	if restored.Read(0x8000) != 0x33 {
		t.Error("VRAM not restored")
	}
	if restored.Read(0xFF44) != 1 {
		t.Error("LY not restored")
	}
	if restored.lineClock != 7 {
		t.Errorf("line clock not restored: got %d", restored.lineClock)
	}

	if err := restored.Deserialize(state[:10]); err == nil {
		t.Error("short state data accepted")
	}
	bad := append([]byte{}, state...)
	bad[0] = 0xFF
	if err := restored.Deserialize(bad); err == nil {
		t.Error("unknown state version accepted")
	}
}

func TestVideoOutput(t *testing.T) {
	b := NewBoard()

	w, h := b.VideoDimensions()
	if w != 160 || h != 144 {
		t.Errorf("dimensions: expected 160x144, got %dx%d", w, h)
	}
	if b.CyclesPerFrame() != 70224 {
		t.Errorf("cycles per frame: expected 70224, got %d", b.CyclesPerFrame())
	}
	if len(b.Framebuffer()) != w*h*4 {
		t.Errorf("framebuffer size: expected %d, got %d", w*h*4, len(b.Framebuffer()))
	}
	if b.FramebufferStride() != w*4 {
		t.Errorf("stride: expected %d, got %d", w*4, b.FramebufferStride())
	}

	// with zeroed VRAM every pixel renders as shade 0 (white)
	b.Tick(cyclesPerFrame)
	fb := b.Framebuffer()
	if fb[0] != 0xFF || fb[1] != 0xFF || fb[2] != 0xFF || fb[3] != 0xFF {
		t.Errorf("blank frame pixel: expected white, got %v", fb[:4])
	}
}

func TestAudioOutput(t *testing.T) {
	b := NewBoard()

	if b.SampleRate() != sampleRate {
		t.Errorf("sample rate: expected %d, got %d", sampleRate, b.SampleRate())
	}
	if len(b.AudioSamples()) != samplesPerFrame*2 {
		t.Errorf("sample count: expected %d, got %d", samplesPerFrame*2, len(b.AudioSamples()))
	}

	// APU disabled: silence
	b.Tick(cyclesPerFrame)
	for i, s := range b.AudioSamples() {
		if s != 0 {
			t.Fatalf("sample %d not silent with APU off: %d", i, s)
		}
	}

	// APU enabled with a non-zero volume: the square wave produces output
	b.Write(0xFF26, 0x80)
	b.Write(0xFF12, 0xF0)
	b.Tick(cyclesPerFrame)
	silent := true
	for _, s := range b.AudioSamples() {
		if s != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("no audio output with APU enabled")
	}
}
