// Package emucore defines the platform-agnostic contracts between the core
// runner and the platform packages: the platform identifiers, the CPU and
// board interfaces, the optional capability interfaces, and the platform
// registry used to locate a core for an arbitrary input file.
package emucore

// Platform identifies an emulated hardware target. The set of platforms is
// fixed at build time by which platform packages are linked into the binary.
type Platform int

const (
	PlatformNone Platform = iota
	PlatformGB
	PlatformGBA
)

// String returns the display name of the platform.
func (p Platform) String() string {
	switch p {
	case PlatformGB:
		return "GB"
	case PlatformGBA:
		return "GBA"
	default:
		return "Unknown"
	}
}
