package constants

import "strings"

// MaxImageBytes is the default upload limit for a single image (4 MiB).
const MaxImageBytes = 4 * 1024 * 1024

// AllowedExtensions holds the image extensions accepted for OCR.
var AllowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without the dot) is an accepted image type.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MIMEForExt returns the declared content type for ext, or "" when unsupported.
func MIMEForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// IsAllowedMIME reports whether a sniffed content type is one we send to the model.
func IsAllowedMIME(mime string) bool {
	for _, m := range AllowedExtensions {
		if m == mime {
			return true
		}
	}
	return false
}
