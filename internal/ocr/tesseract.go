package ocr

import (
	"context"
	"fmt"
	"strconv"
)

// TesseractCLI recognizes images by running the tesseract binary.
type TesseractCLI struct {
	cfg    Config
	runner Runner
}

func NewTesseractCLI(cfg Config, runner Runner) *TesseractCLI {
	if runner == nil {
		runner = NewExecRunner(nil)
	}
	return &TesseractCLI{cfg: cfg.WithDefaults(), runner: runner}
}

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string) (Recognition, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(imagePath)...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}

	rec := Recognition{Text: Normalize(StripBoxNoise(string(out)))}
	if t.cfg.EnableTSVConfidence && rec.Text != "" {
		// confidence is best effort; a failed TSV pass leaves it unset
		if conf, ok, err := t.tsvConfidence(ctx, imagePath); err == nil && ok {
			rec.Confidence = &conf
		}
	}
	return rec, nil
}

func (t *TesseractCLI) args(imagePath string, extra ...string) []string {
	args := []string{imagePath, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *TesseractCLI) tsvConfidence(ctx context.Context, imagePath string) (float64, bool, error) {
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(imagePath, "tsv")...)
	if err != nil {
		return 0, false, fmt.Errorf("tesseract TSV: %w (%s)", err, truncate(string(errb), 512))
	}
	conf, ok := MeanTSVConfidence(out)
	return conf, ok, nil
}
