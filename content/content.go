// Package content handles loading game images from various sources,
// including compressed archives (ZIP, 7z, gzip, tar.gz, RAR), and provides
// companion-file discovery and binary patch application for loaded images.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for archive format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// Maximum image size (32MB, the largest cartridge size of any supported
// platform).
const maxImageSize = 32 * 1024 * 1024

// ErrNoImage is returned when no game image is found in an archive
var ErrNoImage = errors.New("no game image found in archive")

// ErrImageTooLarge is returned when extracted content exceeds the size limit
var ErrImageTooLarge = errors.New("image exceeds maximum size limit")

// formatType represents the detected container format
type formatType int

const (
	formatRaw formatType = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// Image is a game image loaded from disk. SourcePath is the path given to
// LoadImage (the archive path when the image came out of an archive); Name
// is the basename of the image file itself.
type Image struct {
	Data       []byte
	Name       string
	SourcePath string
}

// LoadImage reads a game image from a file path. It auto-detects compressed
// archives via magic bytes and extracts the first entry matching one of the
// given extensions (an empty list takes the first regular entry).
//
// Anything that is not an archive is loaded as-is, whatever its extension;
// whether the bytes are a valid image is the platform probe's call, so an
// image under an unconventional name still loads.
func LoadImage(path string, extensions []string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Read header for magic byte detection
	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return Image{}, fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	format := detectFormat(header, path)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Image{}, fmt.Errorf("failed to seek file: %w", err)
	}

	var data []byte
	var name string
	switch format {
	case formatZIP:
		data, name, err = extractFromZIP(path, extensions)

	case format7z:
		data, name, err = extractFrom7z(path, extensions)

	case formatGzip:
		data, name, err = extractFromGzip(path, extensions)

	case formatRAR:
		data, name, err = extractFromRAR(path, extensions)

	default:
		data, err = limitedRead(f)
		if err != nil {
			return Image{}, fmt.Errorf("failed to read image: %w", err)
		}
		name = filepath.Base(path)
	}
	if err != nil {
		return Image{}, err
	}

	return Image{Data: data, Name: name, SourcePath: path}, nil
}

// detectFormat determines the container format based on magic bytes, with
// an extension fallback for archives whose header was unreadable. Anything
// else is treated as a raw image.
func detectFormat(header []byte, path string) formatType {
	ext := strings.ToLower(filepath.Ext(path))

	// Check magic bytes first (more reliable)
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return formatZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return formatRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return format7z
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return formatGzip
	}

	// Fall back to extension for archive formats
	switch ext {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}

	if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
		return formatGzip
	}

	return formatRaw
}

// isImageFile checks if a filename has one of the given extensions
// (case-insensitive). An empty extensions list matches any name.
func isImageFile(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// limitedRead reads from r up to maxImageSize bytes, returning an error if
// exceeded
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxImageSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
