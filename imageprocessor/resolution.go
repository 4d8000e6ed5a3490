package imageprocessor

import (
	"image"
	"os"

	"imagededup/logging"
)

// Dimensions reads width and height from the image header without decoding
// pixel data
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, unreadable(path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, undecodable(path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Resolution returns width*height, or 0 if the header cannot be read
func Resolution(path string) int {
	w, h, err := Dimensions(path)
	if err != nil {
		logging.LogError("Error getting resolution for %s: %v", path, err)
		return 0
	}
	return w * h
}
