package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// DirectBackend reads the embedded text layer of a page.
type DirectBackend struct {
	minDensity float64 // non-whitespace chars per square inch
	logger     *slog.Logger
}

func NewDirectBackend(minDensity float64, logger *slog.Logger) *DirectBackend {
	if logger == nil {
		logger = slog.Default()
	}
	if minDensity < 0 {
		minDensity = 0
	}
	return &DirectBackend{minDensity: minDensity, logger: logger}
}

func (d *DirectBackend) Name() string { return constants.BackendDirect }

func (d *DirectBackend) Attempt(ctx context.Context, page pdfdoc.Page) entity.Attempt {
	start := time.Now()
	out := d.extract(ctx, page)
	d.logger.Debug("direct attempt",
		"path", page.Path(), "page", page.Index, "kind", out.Kind, "reason", out.Reason)
	return record(d.Name(), page, start, out)
}

func (d *DirectBackend) extract(ctx context.Context, page pdfdoc.Page) entity.Outcome {
	if err := ctx.Err(); err != nil {
		return failureFromError(ctx, err)
	}

	raw, err := page.PlainText()
	if err != nil {
		if errors.Is(err, pdfdoc.ErrNoTextLayer) {
			return entity.Failure(constants.ReasonCorruptStream, err.Error())
		}
		return entity.Failure(constants.ReasonCorruptStream, fmt.Sprintf("read text layer: %v", err))
	}
	if !utf8.ValidString(raw) {
		return entity.Failure(constants.ReasonUnsupportedFormat, "text layer is not valid UTF-8")
	}

	text := ocr.Normalize(raw)
	chars := CountVisible(text)
	if chars == 0 {
		return entity.Failure(constants.ReasonEmptyPage, "no text in text layer")
	}

	density := float64(chars) / page.AreaSquareInches()
	if density < d.minDensity {
		return entity.Failure(constants.ReasonTooSparse,
			fmt.Sprintf("%d chars, %.3f per sq in below %.3f", chars, density, d.minDensity))
	}
	return entity.Success(text)
}

// CountVisible counts non-whitespace runes.
func CountVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
