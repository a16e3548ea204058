//go:build !nogba

package gba

import emucore "github.com/halverson/corekit/api"

// Registration is a build-time choice: compiling with -tags nogba drops the
// platform from the binary.
func init() {
	emucore.Register(emucore.Entry{
		Platform:   emucore.PlatformGBA,
		Extensions: []string{".gba", ".agb"},
		Probe:      Probe,
		NewBoard:   func() emucore.Board { return NewBoard() },
		NewCPU:     func(b emucore.Board) emucore.CPU { return NewCPU(b) },
	})
}
