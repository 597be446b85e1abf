package constants

import "strings"

// SourceKind tells the normalizer how to interpret request bytes.
type SourceKind string

const (
	PDF   SourceKind = "PDF"
	IMAGE SourceKind = "IMAGE"
)

// SourceKinds holds the accepted values for ProcessingRequest.Kind.
var SourceKinds = []SourceKind{PDF, IMAGE}

// AllowedExtensions holds the default file extensions picked up by batch runs.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"webp": {},
	"gif":  {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToKind maps a file extension to its source kind; "" when unsupported.
func MapExtToKind(ext string) SourceKind {
	ext = NormalizeExt(ext)
	if _, ok := AllowedExtensions[ext]; !ok {
		return ""
	}
	if ext == "pdf" {
		return PDF
	}
	return IMAGE
}

// IsHEICExt reports whether ext names a HEIC/HEIF container.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// ParseSourceKind accepts "pdf"/"image" in any case.
func ParseSourceKind(s string) (SourceKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(PDF):
		return PDF, true
	case string(IMAGE):
		return IMAGE, true
	}
	return "", false
}

// MaxSourceBytes caps a single request's document payload.
const MaxSourceBytes = 50 << 20
