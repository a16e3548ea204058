//go:build !nogb

package gb

import emucore "github.com/halverson/corekit/api"

// Registration is a build-time choice: compiling with -tags nogb drops the
// platform from the binary.
func init() {
	emucore.Register(emucore.Entry{
		Platform:   emucore.PlatformGB,
		Extensions: []string{".gb", ".gbc", ".sgb"},
		Probe:      Probe,
		NewBoard:   func() emucore.Board { return NewBoard() },
		NewCPU:     func(b emucore.Board) emucore.CPU { return NewCPU(b) },
	})
}
