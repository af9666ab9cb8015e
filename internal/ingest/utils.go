package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/acordao-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string, allowed ...string) bool {
	ext = constants.NormalizeExt(ext)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if constants.NormalizeExt(a) == ext {
			return true
		}
	}
	return false
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
