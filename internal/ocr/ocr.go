// Package ocr rasterizes PDF pages and runs text recognition on the images.
package ocr

import (
	"context"
	"fmt"
)

// Engine names.
const (
	EngineCLI       = "cli"
	EngineGosseract = "gosseract"
)

type Config struct {
	Engine    string // cli | gosseract; if empty -> cli
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language string // default "eng"
	DPI      int    // rasterization DPI, default 300

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// WithDefaults fills empty fields.
func (c Config) WithDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineCLI
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// Recognition is the output of one recognition pass over one image.
type Recognition struct {
	Text       string
	Confidence *float64 // mean word confidence in 0..1, nil when not computed
}

// Recognizer turns an image file into text.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
}

// NewRecognizer builds the recognizer selected by cfg.Engine.
func NewRecognizer(cfg Config, runner Runner) (Recognizer, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Engine {
	case EngineCLI:
		return NewTesseractCLI(cfg, runner), nil
	case EngineGosseract:
		g, err := NewGosseractRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
