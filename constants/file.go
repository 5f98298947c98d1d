package constants

import "strings"

// Backend identifiers, also used as config values for the priority order.
const (
	BackendDirect = "direct"
	BackendOCR    = "ocr"
	BackendVision = "vision"
)

// KnownBackends lists every backend the registry can build.
var KnownBackends = []string{BackendDirect, BackendOCR, BackendVision}

// DefaultBackendOrder is the page decision priority when none is configured.
var DefaultBackendOrder = []string{BackendDirect, BackendOCR}

// AllowedExtensions holds the default extensions picked up by discovery.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// Output formats.
const (
	FormatText = "txt"
	FormatJSON = "json"
)

// MIMEPDF is the sniffed content type of a PDF file.
const MIMEPDF = "application/pdf"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsKnownBackend reports whether name is a backend the registry can build.
func IsKnownBackend(name string) bool {
	for _, b := range KnownBackends {
		if b == name {
			return true
		}
	}
	return false
}
