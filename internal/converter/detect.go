package converter

import (
	"github.com/gabriel-vasile/mimetype"
)

var imageFormats = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// DetectImageFormat sniffs the payload and returns a short format name, or "" when it is not a known image.
func DetectImageFormat(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if f, ok := imageFormats[m.String()]; ok {
			return f
		}
	}
	return ""
}
