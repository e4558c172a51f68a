package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
)

// AllowedPath checks the file extension against the accepted image types.
func AllowedPath(path string) bool {
	return constants.IsAllowedExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
