//go:build !tesseract

package ocr

import (
	"context"
	"fmt"
)

// GosseractRecognizer is unavailable in builds without the tesseract tag.
type GosseractRecognizer struct{}

func NewGosseractRecognizer(Config) (*GosseractRecognizer, error) {
	return nil, fmt.Errorf("%w: built without the tesseract tag, use the cli engine", ErrEngineUnavailable)
}

func (*GosseractRecognizer) Recognize(context.Context, string) (Recognition, error) {
	return Recognition{}, ErrEngineUnavailable
}
