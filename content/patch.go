package content

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
)

// Patch container magics
var (
	magicIPS = []byte("PATCH")
	magicUPS = []byte("UPS1")
)

// ErrInvalidPatch is returned for malformed or truncated patch data
var ErrInvalidPatch = errors.New("invalid patch data")

// ErrPatchMismatch is returned when a patch carries checksums that do not
// match the image it is applied to
var ErrPatchMismatch = errors.New("patch does not match image")

// ApplyPatch applies a binary patch to a game image and returns the patched
// copy. The input image is never modified. IPS and UPS containers are
// detected by magic bytes.
func ApplyPatch(image, patch []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(patch, magicIPS):
		return applyIPS(image, patch)
	case bytes.HasPrefix(patch, magicUPS):
		return applyUPS(image, patch)
	default:
		return nil, fmt.Errorf("%w: unknown container", ErrInvalidPatch)
	}
}

// applyIPS applies an IPS patch: a sequence of records, each a 3-byte
// offset and 2-byte size followed by data. A size of zero marks an RLE
// record (2-byte run length, one fill byte). The record stream ends at the
// "EOF" marker, optionally followed by a 3-byte truncation length.
func applyIPS(image, patch []byte) ([]byte, error) {
	out := make([]byte, len(image))
	copy(out, image)

	pos := len(magicIPS)
	for {
		if pos+3 > len(patch) {
			return nil, fmt.Errorf("%w: missing EOF marker", ErrInvalidPatch)
		}
		if bytes.Equal(patch[pos:pos+3], []byte("EOF")) {
			pos += 3
			break
		}

		offset := int(patch[pos])<<16 | int(patch[pos+1])<<8 | int(patch[pos+2])
		pos += 3
		if pos+2 > len(patch) {
			return nil, fmt.Errorf("%w: truncated record header", ErrInvalidPatch)
		}
		size := int(patch[pos])<<8 | int(patch[pos+1])
		pos += 2

		if size == 0 {
			// RLE record
			if pos+3 > len(patch) {
				return nil, fmt.Errorf("%w: truncated RLE record", ErrInvalidPatch)
			}
			run := int(patch[pos])<<8 | int(patch[pos+1])
			fill := patch[pos+2]
			pos += 3

			out = growTo(out, offset+run)
			for i := 0; i < run; i++ {
				out[offset+i] = fill
			}
			continue
		}

		if pos+size > len(patch) {
			return nil, fmt.Errorf("%w: truncated record data", ErrInvalidPatch)
		}
		out = growTo(out, offset+size)
		copy(out[offset:], patch[pos:pos+size])
		pos += size
	}

	// Optional truncation extension
	if pos+3 <= len(patch) {
		trunc := int(patch[pos])<<16 | int(patch[pos+1])<<8 | int(patch[pos+2])
		if trunc > 0 && trunc < len(out) {
			out = out[:trunc]
		}
	}

	return out, nil
}

// applyUPS applies a UPS patch: variable-width input/output sizes, then
// hunks of (skip distance, XOR bytes terminated by 0x00). The final 12
// bytes hold CRC32s of the source, the target and the patch itself, all of
// which are validated.
func applyUPS(image, patch []byte) ([]byte, error) {
	if len(patch) < len(magicUPS)+12 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidPatch)
	}

	body := patch[:len(patch)-12]
	footer := patch[len(patch)-12:]
	srcCRC := leCRC(footer[0:4])
	dstCRC := leCRC(footer[4:8])
	patchCRC := leCRC(footer[8:12])

	if crc32.ChecksumIEEE(patch[:len(patch)-4]) != patchCRC {
		return nil, fmt.Errorf("%w: patch checksum", ErrInvalidPatch)
	}
	if crc32.ChecksumIEEE(image) != srcCRC {
		return nil, fmt.Errorf("%w: source checksum", ErrPatchMismatch)
	}

	pos := len(magicUPS)
	srcSize, pos, err := upsVarint(body, pos)
	if err != nil {
		return nil, err
	}
	dstSize, pos, err := upsVarint(body, pos)
	if err != nil {
		return nil, err
	}
	if srcSize != len(image) {
		return nil, fmt.Errorf("%w: source size", ErrPatchMismatch)
	}

	out := make([]byte, dstSize)
	copy(out, image)

	offset := 0
	for pos < len(body) {
		var skip int
		skip, pos, err = upsVarint(body, pos)
		if err != nil {
			return nil, err
		}
		offset += skip

		for pos < len(body) {
			b := body[pos]
			pos++
			if b == 0 {
				offset++
				break
			}
			if offset < len(out) {
				out[offset] ^= b
			}
			offset++
		}
	}

	if crc32.ChecksumIEEE(out) != dstCRC {
		return nil, fmt.Errorf("%w: target checksum", ErrInvalidPatch)
	}
	return out, nil
}

// upsVarint decodes the UPS variable-width integer at pos
func upsVarint(data []byte, pos int) (int, int, error) {
	value := 0
	shift := 1
	for {
		if pos >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated integer", ErrInvalidPatch)
		}
		x := data[pos]
		pos++
		value += int(x&0x7F) * shift
		if x&0x80 != 0 {
			return value, pos, nil
		}
		shift <<= 7
		value += shift
	}
}

// leCRC reads a little-endian CRC32 field
func leCRC(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// growTo extends buf with zero bytes so that it is at least n long
func growTo(buf []byte, n int) []byte {
	if n <= len(buf) {
		return buf
	}
	grown := make([]byte, n)
	copy(grown, buf)
	return grown
}
