package frontend

import "testing"

func TestSharedFramebuffer_UpdateAndRead(t *testing.T) {
	sf := NewSharedFramebuffer(160, 144)

	pixels := make([]byte, 160*144*4)
	for i := range pixels {
		pixels[i] = byte(i % 251)
	}

	sf.Update(pixels)

	readPixels, width, height := sf.Read()
	if width != 160 || height != 144 {
		t.Fatalf("dimensions: expected 160x144, got %dx%d", width, height)
	}
	for i := range pixels {
		if readPixels[i] != pixels[i] {
			t.Fatalf("pixel mismatch at %d: expected %d, got %d", i, pixels[i], readPixels[i])
		}
	}
}

func TestSharedFramebuffer_ShortUpdate(t *testing.T) {
	sf := NewSharedFramebuffer(160, 144)

	// a short source fills only the leading bytes and must not panic
	sf.Update([]byte{0x11, 0x22})

	readPixels, _, _ := sf.Read()
	if readPixels[0] != 0x11 || readPixels[1] != 0x22 {
		t.Error("leading bytes not copied")
	}
	if readPixels[2] != 0 {
		t.Error("unwritten bytes not zero")
	}
}

func TestSharedFramebuffer_ReadIsSnapshot(t *testing.T) {
	sf := NewSharedFramebuffer(2, 2)

	first := make([]byte, 16)
	for i := range first {
		first[i] = 0xAA
	}
	sf.Update(first)
	snapshot, _, _ := sf.Read()

	second := make([]byte, 16)
	for i := range second {
		second[i] = 0xBB
	}
	sf.Update(second)

	// the earlier snapshot is untouched until the next Read
	if snapshot[0] != 0xAA {
		t.Error("snapshot mutated by a later Update")
	}

	latest, _, _ := sf.Read()
	if latest[0] != 0xBB {
		t.Error("later frame not visible after Read")
	}
}
