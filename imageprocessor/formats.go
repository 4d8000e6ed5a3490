package imageprocessor

import (
	"path/filepath"
	"strings"
)

// Extensions a scan picks up, lower-case
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsImageFile reports whether name ends in a candidate extension, ignoring case
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
