package emucore

import (
	"bytes"
	"testing"
)

// swapRegistry replaces the global registry for the duration of a test
func swapRegistry(t *testing.T) {
	t.Helper()
	saved := registry
	registry = nil
	t.Cleanup(func() { registry = saved })
}

type fakeBoard struct{}

func (fakeBoard) Reset()                      {}
func (fakeBoard) LoadROM(rom []byte) error    { return nil }
func (fakeBoard) Tick(cycles int)             {}
func (fakeBoard) VideoDimensions() (int, int) { return 1, 1 }
func (fakeBoard) CyclesPerFrame() int         { return 1 }

type fakeCPU struct{}

func (fakeCPU) Reset()    {}
func (fakeCPU) Step() int { return 1 }

// fakeEntry claims any image that starts with the given marker byte
func fakeEntry(p Platform, marker byte, exts ...string) Entry {
	return Entry{
		Platform:   p,
		Extensions: exts,
		Probe:      func(data []byte) bool { return bytes.HasPrefix(data, []byte{marker}) },
		NewBoard:   func() Board { return fakeBoard{} },
		NewCPU:     func(b Board) CPU { return fakeCPU{} },
	}
}

func TestRegisterAndLookup(t *testing.T) {
	swapRegistry(t)

	Register(fakeEntry(PlatformGB, 0x01, ".gb"))
	Register(fakeEntry(PlatformGBA, 0x02, ".gba", ".agb"))

	e, ok := Lookup(PlatformGBA)
	if !ok {
		t.Fatal("Lookup failed for registered platform")
	}
	if e.Platform != PlatformGBA {
		t.Errorf("Lookup returned wrong entry: %s", e.Platform)
	}

	if _, ok := Lookup(PlatformNone); ok {
		t.Error("Lookup succeeded for unregistered platform")
	}
}

func TestProbeAll(t *testing.T) {
	swapRegistry(t)

	Register(fakeEntry(PlatformGB, 0x01))
	Register(fakeEntry(PlatformGBA, 0x02))

	p, ok := ProbeAll([]byte{0x02, 0xFF})
	if !ok || p != PlatformGBA {
		t.Errorf("expected GBA claim, got %s, %v", p, ok)
	}

	p, ok = ProbeAll([]byte{0xEE})
	if ok || p != PlatformNone {
		t.Errorf("expected no claim, got %s, %v", p, ok)
	}
}

func TestProbeAll_RegistrationOrder(t *testing.T) {
	swapRegistry(t)

	// both entries claim the same marker; the first registered wins
	Register(fakeEntry(PlatformGB, 0x01))
	Register(fakeEntry(PlatformGBA, 0x01))

	p, ok := ProbeAll([]byte{0x01})
	if !ok || p != PlatformGB {
		t.Errorf("expected first registered platform to claim, got %s", p)
	}
}

func TestPlatformsAndExtensions(t *testing.T) {
	swapRegistry(t)

	Register(fakeEntry(PlatformGB, 0x01, ".gb", ".gbc"))
	Register(fakeEntry(PlatformGBA, 0x02, ".gba"))

	ps := Platforms()
	if len(ps) != 2 || ps[0] != PlatformGB || ps[1] != PlatformGBA {
		t.Errorf("unexpected platform list: %v", ps)
	}

	exts := Extensions()
	want := []string{".gb", ".gbc", ".gba"}
	if len(exts) != len(want) {
		t.Fatalf("unexpected extension list: %v", exts)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("extension %d: expected %s, got %s", i, want[i], exts[i])
		}
	}
}

func TestRegister_Panics(t *testing.T) {
	mustPanic := func(t *testing.T, name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	swapRegistry(t)

	mustPanic(t, "PlatformNone", func() {
		Register(fakeEntry(PlatformNone, 0x01))
	})
	mustPanic(t, "nil probe", func() {
		e := fakeEntry(PlatformGB, 0x01)
		e.Probe = nil
		Register(e)
	})
	mustPanic(t, "nil board constructor", func() {
		e := fakeEntry(PlatformGB, 0x01)
		e.NewBoard = nil
		Register(e)
	})

	Register(fakeEntry(PlatformGB, 0x01))
	mustPanic(t, "duplicate platform", func() {
		Register(fakeEntry(PlatformGB, 0x02))
	})
}

func TestPlatformString(t *testing.T) {
	testCases := []struct {
		p        Platform
		expected string
	}{
		{PlatformGB, "GB"},
		{PlatformGBA, "GBA"},
		{PlatformNone, "Unknown"},
		{Platform(99), "Unknown"},
	}

	for _, tc := range testCases {
		if got := tc.p.String(); got != tc.expected {
			t.Errorf("Platform(%d).String(): expected %s, got %s", int(tc.p), tc.expected, got)
		}
	}
}
