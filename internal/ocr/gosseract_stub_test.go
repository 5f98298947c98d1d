//go:build !tesseract

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGosseractUnavailableWithoutTag(t *testing.T) {
	_, err := NewRecognizer(Config{Engine: EngineGosseract}, nil)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}
