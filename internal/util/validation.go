package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxImageSize bounds avatar and project image uploads.
const MaxImageSize = 5 << 20

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageContentType returns the MIME type for an accepted image filename.
func ImageContentType(filename string) (string, bool) {
	ct, ok := imageContentTypes[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// ValidateImageUpload checks the filename and size of an uploaded image.
func ValidateImageUpload(filename string, size int64) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if _, ok := ImageContentType(filename); !ok {
		return errors.New("unsupported image type (jpg, png, gif, webp)")
	}
	if size > MaxImageSize {
		return errors.New("image too large (max 5MB)")
	}
	return nil
}
