package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"imagededup/imageprocessor"
	"imagededup/logging"
)

// ValidateDirectory returns ErrInvalidDirectory unless dir names a directory
func ValidateDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidDirectory, dir)
	}
	return nil
}

// ListImages returns the PNG and JPEG files directly inside dir, ordered by
// file name. The order is the tie-break order for keeper selection.
func ListImages(dir string) ([]string, error) {
	// os.ReadDir sorts entries by name.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !imageprocessor.IsImageFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !entry.Type().IsRegular() {
			// Follow symlinks the way a plain stat would.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				logging.DebugLog("Skipping non-regular file %s", path)
				continue
			}
		}
		paths = append(paths, path)
	}
	return paths, nil
}
