package content

import (
	"os"
	"path/filepath"
	"strings"
)

// CompanionPath derives the conventional companion-file path for an image:
// the image path with its extension replaced. For "games/foo.gba" and
// ".sav" this is "games/foo.sav".
func CompanionPath(imagePath, ext string) string {
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	return base + ext
}

// FindCompanion returns the path of the first existing companion file for
// the image among the given extensions, tried in order. Absence is a
// normal result reported via the bool, never an error.
func FindCompanion(imagePath string, exts ...string) (string, bool) {
	for _, ext := range exts {
		p := CompanionPath(imagePath, ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
