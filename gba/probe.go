// Package gba provides the Game Boy Advance platform model: an ARM7 CPU
// model and a board exposing the AGB memory map, line-based video timing
// and save-memory detection.
package gba

// Cartridge header offsets
const (
	hdrFixed    = 0xB2 // always 0x96 in valid images
	hdrChecksum = 0xBD // complement check over 0xA0..0xBC
)

// Probe reports whether data looks like a GBA cartridge image: the fixed
// header byte must be present and the header complement check must
// validate.
func Probe(data []byte) bool {
	if len(data) < 0xC0 {
		return false
	}
	if data[hdrFixed] != 0x96 {
		return false
	}
	var sum byte
	for _, v := range data[0xA0:0xBD] {
		sum += v
	}
	return -(0x19 + sum) == data[hdrChecksum]
}
