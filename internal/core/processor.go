// Package core aggregates per-page decisions into a document result.
package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
)

// DocumentOpener opens a PDF. Implemented by *pdfdoc.Opener.
type DocumentOpener interface {
	Open(ctx context.Context, path string) (*pdfdoc.Document, error)
}

// PageDecider runs the backend cascade for one page. Implemented by *policy.Policy.
type PageDecider interface {
	Decide(ctx context.Context, page pdfdoc.Page) (entity.PageResult, error)
}

// Config holds the aggregation tunables.
type Config struct {
	PageWorkers   int    // concurrent pages per document
	PageSeparator string // inserted between page texts
	MaxPages      int    // 0 = all pages
}

// Processor turns one PDF into a DocumentResult.
type Processor struct {
	logger  *slog.Logger
	opener  DocumentOpener
	decider PageDecider
	cfg     Config
}

func NewProcessor(logger *slog.Logger, opener DocumentOpener, decider PageDecider, cfg Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	return &Processor{
		logger:  logger,
		opener:  opener,
		decider: decider,
		cfg:     cfg,
	}
}

// ProcessDocument opens path and decides every page.
//
// An unopenable or empty document is returned as a Failed result with a nil
// error. The error return is reserved for cancellation (ctx.Err()) and for
// internal errors such as a recovered backend panic; in both cases the result
// must not be reported.
func (p *Processor) ProcessDocument(ctx context.Context, path string) (entity.DocumentResult, error) {
	start := time.Now()
	ctx = common.WithDocument(ctx, path)
	logger := common.LoggerFrom(ctx, p.logger)

	res := entity.DocumentResult{
		Path:         path,
		Pages:        []entity.PageResult{},
		FailedPages:  []int{},
		BackendUsage: map[string]int{},
		StartedAt:    start.UTC(),
	}

	doc, err := p.opener.Open(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.DocumentResult{}, ctxErr
		}
		if !errors.Is(err, common.ErrDocumentFatal) {
			return entity.DocumentResult{}, common.WrapError(err, "open document")
		}
		logger.Warn("document unopenable", "error", err)
		res.Status = constants.DocumentFailed
		res.Reason = constants.ReasonUnopenable
		res.Detail = err.Error()
		res.Duration = time.Since(start)
		return res, nil
	}
	res.SizeBytes = doc.Size
	res.ContentHash = doc.ContentHash

	pages := doc.Pages()
	if len(pages) == 0 {
		logger.Warn("document has no pages")
		res.Status = constants.DocumentFailed
		res.Reason = constants.ReasonNoPages
		res.Duration = time.Since(start)
		return res, nil
	}

	results, err := p.decidePages(ctx, pages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("document abandoned", "error", ctxErr)
			return entity.DocumentResult{}, ctxErr
		}
		return entity.DocumentResult{}, err
	}

	aggregate(&res, results, p.cfg.PageSeparator)
	res.Duration = time.Since(start)

	logger.Info("document processed",
		"status", res.Status,
		"pages", len(res.Pages),
		"failed_pages", len(res.FailedPages),
		"backends", res.BackendUsage,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// decidePages runs the decider for every page, bounded by PageWorkers. Each
// goroutine writes only its own slot.
func (p *Processor) decidePages(ctx context.Context, pages []pdfdoc.Page) ([]entity.PageResult, error) {
	results := make([]entity.PageResult, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PageWorkers)

	for i, page := range pages {
		if p.cfg.MaxPages > 0 && i >= p.cfg.MaxPages {
			// beyond the cap: never tried
			results[i] = entity.PageResult{
				Index:    page.Index,
				State:    constants.PageExhaustedFailed,
				Attempts: []entity.Attempt{},
			}
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = common.InternalErrorf("page %d: panic: %v", page.Index, r)
				}
			}()
			pr, err := p.decider.Decide(gctx, page)
			if err != nil {
				return err
			}
			results[i] = pr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// aggregate joins page texts in index order and derives the document status.
func aggregate(res *entity.DocumentResult, pages []entity.PageResult, sep string) {
	texts := make([]string, len(pages))
	accepted := 0
	for i, pr := range pages {
		texts[i] = pr.Text()
		if pr.State == constants.PageAccepted && pr.Accepted != nil {
			accepted++
			res.BackendUsage[pr.Accepted.Backend]++
		} else {
			res.FailedPages = append(res.FailedPages, pr.Index)
		}
	}
	res.Pages = pages
	res.Text = strings.Join(texts, sep)

	switch {
	case accepted == len(pages):
		res.Status = constants.DocumentComplete
	case accepted == 0:
		res.Status = constants.DocumentFailed
	default:
		res.Status = constants.DocumentPartialComplete
	}
}
