package core

import (
	emucore "github.com/halverson/corekit/api"
	"github.com/halverson/corekit/content"
)

// Find probes the file at path against every registered platform and, on a
// match, returns an uninitialized Core bound to the claiming platform.
// Absence (an unreadable file, or an image no platform claims) is a
// normal result reported via the bool, never an error.
//
// Compressed archives (zip, 7z, gzip, tar.gz, rar) are probed by their
// first entry carrying a registered image extension. Anything else is
// probed by content, whatever its extension.
func Find(path string) (*Core, bool) {
	img, err := content.LoadImage(path, emucore.Extensions())
	if err != nil {
		return nil, false
	}
	platform, ok := emucore.ProbeAll(img.Data)
	if !ok {
		return nil, false
	}
	return New(platform)
}
