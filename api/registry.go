package emucore

import "fmt"

// Entry describes one registered platform: how to recognize its ROM images
// and how to construct its CPU and board models.
type Entry struct {
	// Platform is the identifier this entry claims.
	Platform Platform

	// Extensions lists ROM file extensions for this platform (e.g. ".gba").
	// Used when extracting images from archives and when resolving
	// companion save/patch files.
	Extensions []string

	// Probe reports whether the given image data is a ROM for this
	// platform. Probes must be pure functions of the data.
	Probe func(data []byte) bool

	// NewBoard constructs an empty board model.
	NewBoard func() Board

	// NewCPU constructs a CPU model wired to the given board. The board is
	// always one produced by NewBoard of the same entry.
	NewCPU func(b Board) CPU
}

// The registry is populated by platform package init functions and is
// read-only once any probe or lookup has run. There is no locking; mutation
// after startup is not supported.
var registry []Entry

// Register adds a platform entry. It is intended to be called from the
// init function of a platform package and panics on malformed entries so
// that misregistration fails at startup rather than at probe time.
func Register(e Entry) {
	if e.Platform == PlatformNone {
		panic("emucore: Register with PlatformNone")
	}
	if e.Probe == nil || e.NewBoard == nil || e.NewCPU == nil {
		panic(fmt.Sprintf("emucore: Register %s with nil constructor or probe", e.Platform))
	}
	for _, r := range registry {
		if r.Platform == e.Platform {
			panic(fmt.Sprintf("emucore: Register called twice for %s", e.Platform))
		}
	}
	registry = append(registry, e)
}

// ProbeAll applies each registered probe in registration order and returns
// the first platform that claims the data. The bool result is false if no
// platform matches.
func ProbeAll(data []byte) (Platform, bool) {
	for _, e := range registry {
		if e.Probe(data) {
			return e.Platform, true
		}
	}
	return PlatformNone, false
}

// Lookup returns the registry entry for a platform.
func Lookup(p Platform) (Entry, bool) {
	for _, e := range registry {
		if e.Platform == p {
			return e, true
		}
	}
	return Entry{}, false
}

// Platforms returns the registered platform ids in registration order.
func Platforms() []Platform {
	ps := make([]Platform, 0, len(registry))
	for _, e := range registry {
		ps = append(ps, e.Platform)
	}
	return ps
}

// Extensions returns the union of all registered ROM extensions. Used by
// the locator when probing archives that may hold an image for any
// platform.
func Extensions() []string {
	var exts []string
	for _, e := range registry {
		exts = append(exts, e.Extensions...)
	}
	return exts
}
