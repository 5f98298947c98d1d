package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// OCRBackend rasterizes a page and runs text recognition on the image.
type OCRBackend struct {
	raster     PageRasterizer
	recognizer ocr.Recognizer
	logger     *slog.Logger
}

func NewOCRBackend(raster PageRasterizer, recognizer ocr.Recognizer, logger *slog.Logger) *OCRBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRBackend{raster: raster, recognizer: recognizer, logger: logger}
}

func (b *OCRBackend) Name() string { return constants.BackendOCR }

func (b *OCRBackend) Attempt(ctx context.Context, page pdfdoc.Page) entity.Attempt {
	start := time.Now()
	out := b.extract(ctx, page)
	b.logger.Debug("ocr attempt",
		"path", page.Path(), "page", page.Index, "kind", out.Kind, "reason", out.Reason,
		"duration_ms", time.Since(start).Milliseconds())
	return record(b.Name(), page, start, out)
}

func (b *OCRBackend) extract(ctx context.Context, page pdfdoc.Page) entity.Outcome {
	if err := ctx.Err(); err != nil {
		return failureFromError(ctx, err)
	}

	img, release, err := b.raster.RenderPage(ctx, page.Path(), page.Number())
	defer nopIfNil(release)()
	if err != nil {
		return failureFromError(ctx, err)
	}

	rec, err := b.recognizer.Recognize(ctx, img)
	if err != nil {
		return failureFromError(ctx, err)
	}
	if strings.TrimSpace(rec.Text) == "" {
		return entity.Failure(constants.ReasonOCREmpty, "recognizer returned no text")
	}
	if rec.Confidence != nil {
		return entity.PartialSuccess(rec.Text, *rec.Confidence)
	}
	return entity.Success(rec.Text)
}
