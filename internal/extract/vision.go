package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/llm"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// VisionBackend sends the rendered page to a vision model.
type VisionBackend struct {
	raster PageRasterizer
	client llm.VisionClient
	prompt string
	logger *slog.Logger
}

func NewVisionBackend(raster PageRasterizer, client llm.VisionClient, prompt string, logger *slog.Logger) *VisionBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionBackend{raster: raster, client: client, prompt: prompt, logger: logger}
}

func (v *VisionBackend) Name() string { return constants.BackendVision }

func (v *VisionBackend) Attempt(ctx context.Context, page pdfdoc.Page) entity.Attempt {
	start := time.Now()
	out := v.extract(ctx, page)
	v.logger.Debug("vision attempt",
		"path", page.Path(), "page", page.Index, "client", v.client.Name(),
		"kind", out.Kind, "reason", out.Reason, "duration_ms", time.Since(start).Milliseconds())
	return record(v.Name(), page, start, out)
}

func (v *VisionBackend) extract(ctx context.Context, page pdfdoc.Page) entity.Outcome {
	if err := ctx.Err(); err != nil {
		return failureFromError(ctx, err)
	}

	img, release, err := v.raster.RenderPage(ctx, page.Path(), page.Number())
	defer nopIfNil(release)()
	if err != nil {
		return failureFromError(ctx, err)
	}

	data, mt, err := llm.ReadPageImage(img)
	if err != nil {
		return entity.Failure(constants.ReasonEngineError, fmt.Sprintf("read rendered page: %v", err))
	}

	text, err := v.client.Transcribe(ctx, llm.PageImage{
		Data:       data,
		MIMEType:   mt,
		Prompt:     v.prompt,
		Source:     page.Path(),
		PageNumber: page.Number(),
	})
	if err != nil {
		return failureFromError(ctx, err)
	}
	text = ocr.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return entity.Failure(constants.ReasonVisionEmpty, "model returned no text")
	}
	return entity.Success(text)
}
