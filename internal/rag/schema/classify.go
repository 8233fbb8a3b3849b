package schema

import (
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Classify decides whether a stored content value is an image or text.
// Image content appears in two forms: a path to a rendered page image, or a
// base64 payload whose decoded bytes carry an image signature. Everything
// else is text.
func Classify(value string) Content {
	if isImagePath(value) || isBase64Image(value) {
		return Content{Kind: KindImage, Value: value}
	}
	return Content{Kind: KindText, Value: value}
}

func isImagePath(value string) bool {
	if strings.ContainsAny(value, "\n\r") || len(value) > 4096 {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(value)))]
}

func isBase64Image(value string) bool {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 16 {
		return false
	}
	// Sniffing the first bytes is enough for magic-number detection.
	head := trimmed
	if len(head) > 64 {
		head = head[:64]
	}
	decoded, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(head[:len(head)-len(head)%4])
	if err != nil {
		return false
	}
	return strings.HasPrefix(mimetype.Detect(decoded).String(), "image/")
}
