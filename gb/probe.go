package gb

import "bytes"

// nintendoLogo is the boot-ROM logo bitmap every licensed cartridge carries
// at 0x0104.
var nintendoLogo = []byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B,
	0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC,
	0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Probe reports whether data looks like a Game Boy cartridge image: the
// boot logo must be present at 0x0104 and the header checksum at 0x014D
// must validate over 0x0134..0x014C.
func Probe(data []byte) bool {
	if len(data) < 0x0150 {
		return false
	}
	if !bytes.Equal(data[hdrLogo:hdrLogo+len(nintendoLogo)], nintendoLogo) {
		return false
	}
	var sum byte
	for _, v := range data[0x0134:0x014D] {
		sum = sum - v - 1
	}
	return sum == data[hdrChecksum]
}
