package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// AllowedExt checks if a file extension is in exts, or in the default set when exts is empty.
func AllowedExt(ext string, exts map[string]struct{}) bool {
	ext = constants.NormalizeExt(ext)
	if len(exts) == 0 {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[ext]
	return ok
}

// ExtSet builds a lookup set from a list of extensions.
func ExtSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, e := range list {
		if e = constants.NormalizeExt(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// HashFile returns the sha256 of the file at path as hex.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
