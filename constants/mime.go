package constants

import (
	"mime"
	"strings"
)

// ImageExtensions holds the attachment extensions we hand to the OCR engine.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageMIME reports whether a declared content type denotes an image.
// Parameters and noise ("image/jpeg; name=x") are tolerated.
func IsImageMIME(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasPrefix(mt, "image/")
}

// ExtForMIME maps an image content type to a file extension tesseract
// recognizes. Unknown image subtypes fall back to png.
func ExtForMIME(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
