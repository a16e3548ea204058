package content

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/nwaples/rardecode/v2"
)

// extractFromRAR returns the first rar entry carrying an image extension.
// Entries are streamed, so the scan stops at the first match.
func extractFromRAR(path string, extensions []string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil, "", ErrNoImage
		}
		if err != nil {
			return nil, "", fmt.Errorf("rar entry: %w", err)
		}
		if header.IsDir || !isImageFile(header.Name, extensions) {
			continue
		}

		data, err := limitedRead(r)
		if err != nil {
			return nil, "", fmt.Errorf("rar entry %s: %w", header.Name, err)
		}
		return data, filepath.Base(header.Name), nil
	}
}
