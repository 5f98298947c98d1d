package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Rasterizer renders single PDF pages to PNG with pdftoppm.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner(logger)
	}
	return &Rasterizer{cfg: cfg.WithDefaults(), runner: runner, logger: logger}
}

// DPI returns the configured resolution.
func (r *Rasterizer) DPI() int {
	return r.cfg.DPI
}

// RenderPage renders the 1-based page number of the PDF at path into a
// temporary PNG. release is never nil and must be called on every path;
// it removes the temporary directory.
func (r *Rasterizer) RenderPage(ctx context.Context, path string, number int) (imagePath string, release func(), err error) {
	tmpDir, err := os.MkdirTemp("", "pdfx-page-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp dir: %w", err)
	}
	release = func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(number)
	// pdftoppm -r 300 -f N -l N -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", strconv.Itoa(r.cfg.DPI), "-f", n, "-l", n, "-png", "-singlefile", path, prefix)
	if err != nil {
		return "", release, fmt.Errorf("pdftoppm page %d: %w (%s)", number, err, truncate(string(errb), 512))
	}

	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		return "", release, fmt.Errorf("pdftoppm produced no image for page %d: %w", number, statErr)
	}
	return out, release, nil
}
