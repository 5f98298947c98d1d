package ocr

import (
	"strconv"
	"strings"
)

// MeanTSVConfidence averages the word confidences of tesseract TSV output and
// scales them to 0..1. ok is false when no word carried a confidence.
func MeanTSVConfidence(tsv []byte) (mean float64, ok bool) {
	lines := strings.Split(string(tsv), "\n")
	// conf column is the 11th of 12; header line includes "conf"
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" || strings.TrimSpace(cols[11]) == "" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / n / 100.0, true
}
