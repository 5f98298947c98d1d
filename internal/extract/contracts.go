// Package extract implements the per-page extraction backends.
//
// A backend never returns a Go error for an expected failure: corrupt
// streams, sparse text, missing engines and timeouts all come back as a
// Failure outcome carrying a reason code.
package extract

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/ocr"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// Backend is one extraction method.
type Backend interface {
	Name() string
	Attempt(ctx context.Context, page pdfdoc.Page) entity.Attempt
}

// PageRasterizer renders one page to an image file. release must be called
// on every path.
type PageRasterizer interface {
	RenderPage(ctx context.Context, path string, number int) (imagePath string, release func(), err error)
}

// record wraps an outcome into an attempt with its duration.
func record(name string, page pdfdoc.Page, start time.Time, out entity.Outcome) entity.Attempt {
	return entity.Attempt{
		Backend:   name,
		PageIndex: page.Index,
		Outcome:   out,
		Duration:  time.Since(start),
	}
}

// failureFromError maps an engine error to a failure reason.
func failureFromError(ctx context.Context, err error) entity.Outcome {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return entity.Failure(constants.ReasonTimeout, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return entity.Failure(constants.ReasonCancelled, err.Error())
	case errors.Is(err, ocr.ErrEngineUnavailable), errors.Is(err, exec.ErrNotFound):
		return entity.Failure(constants.ReasonEngineUnavailable, err.Error())
	default:
		return entity.Failure(constants.ReasonEngineError, err.Error())
	}
}

func nopIfNil(release func()) func() {
	if release == nil {
		return func() {}
	}
	return release
}
