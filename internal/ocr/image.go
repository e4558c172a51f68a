package ocr

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/constants"
)

var (
	// ErrImageTooLarge is returned for images over the configured byte limit.
	ErrImageTooLarge = errors.New("image too large, must be under 4MB")
	// ErrUnsupportedFormat is returned for anything that is not a JPEG or PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyImage is returned for zero-byte uploads.
	ErrEmptyImage = errors.New("empty image")
)

// Image is an upload ready to be sent to the model.
type Image struct {
	Filename string
	MIMEType string
	Data     []byte
}

// ValidateImage checks size, extension and sniffed content type, and returns
// the image with its MIME type filled in. maxBytes <= 0 uses constants.MaxImageBytes.
func ValidateImage(filename string, data []byte, maxBytes int64) (Image, error) {
	if maxBytes <= 0 {
		maxBytes = constants.MaxImageBytes
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	if int64(len(data)) > maxBytes {
		if maxBytes == constants.MaxImageBytes {
			return Image{}, ErrImageTooLarge
		}
		return Image{}, fmt.Errorf("%w (limit %d bytes)", ErrImageTooLarge, maxBytes)
	}

	ext := constants.NormalizeExt(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		return Image{}, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	sniffed := http.DetectContentType(data)
	if !constants.IsAllowedMIME(sniffed) {
		return Image{}, fmt.Errorf("%w: content is %s", ErrUnsupportedFormat, sniffed)
	}
	return Image{Filename: filename, MIMEType: sniffed, Data: data}, nil
}
