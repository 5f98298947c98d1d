// Package async fans documents out to a bounded worker pool and folds the
// results into a batch report.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-extractor/internal/ingest"
	"github.com/joseph-ayodele/pdf-extractor/internal/repository"
)

// DocumentProcessor extracts one document. Implemented by *core.Processor.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path string) (entity.DocumentResult, error)
}

// Orchestrator runs batches. Totals, the report, the sink and the ledger are
// only touched by the collector goroutine of a run.
type Orchestrator struct {
	proc   DocumentProcessor
	logger *slog.Logger

	workers       int
	timeout       time.Duration
	discovery     ingest.Options
	progress      func(entity.Progress)
	sink          export.Sink
	ledger        repository.DocumentRepository
	skipProcessed bool
}

type Option func(*Orchestrator)

func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProcessTimeout bounds the processing of a single document.
func WithProcessTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithDiscovery(opts ingest.Options) Option {
	return func(o *Orchestrator) { o.discovery = opts }
}

// WithProgress registers a callback invoked after each document with the
// running totals. It is called from the collector goroutine only.
func WithProgress(fn func(entity.Progress)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func WithSink(s export.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithLedger records every finished document; with skipProcessed, documents
// whose content was already recorded as complete are not extracted again.
func WithLedger(repo repository.DocumentRepository, skipProcessed bool) Option {
	return func(o *Orchestrator) {
		o.ledger = repo
		o.skipProcessed = skipProcessed
	}
}

func NewOrchestrator(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 15 * time.Minute,
		discovery: ingest.Options{
			SkipHidden: true,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run discovers documents under root and processes them. Only discovery and
// pool failures are returned as errors; every document failure ends up in
// the report. A cancelled run returns the partial report with Cancelled set.
func (o *Orchestrator) Run(ctx context.Context, root string) (entity.BatchReport, error) {
	runID := uuid.NewString()
	ctx = common.WithRunID(ctx, runID)
	logger := common.LoggerFrom(ctx, o.logger)
	report := entity.NewBatchReport(runID, root, time.Now().UTC())
	start := time.Now()

	found, err := ingest.Discover(ctx, root, o.discovery, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Cancelled = true
			return o.finish(ctx, report, start)
		}
		logger.Error("discovery failed", "root", root, "error", err)
		report.Duration = time.Since(start)
		return report, err
	}
	report.Unprocessed = append(report.Unprocessed, found.Unprocessed...)
	report.Totals.Discovered = len(found.Candidates) + len(found.Unprocessed)
	report.Totals.Unprocessed = len(found.Unprocessed)

	if len(found.Candidates) == 0 {
		logger.Info("nothing to process", "root", root)
		return o.finish(ctx, report, start)
	}

	pool, err := ants.NewPool(o.workers, ants.WithLogger(antsLogger{logger}))
	if err != nil {
		return report, common.OrchestrationError("create worker pool", err)
	}
	defer pool.Release()

	events := make(chan event, o.workers)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for ev := range events {
			o.collect(ctx, &report, ev)
		}
	}()

	var (
		wg        sync.WaitGroup
		submitErr error
	)
	for i, c := range found.Candidates {
		if ctx.Err() != nil {
			for _, rest := range found.Candidates[i:] {
				events <- event{kind: eventCancelled, job: Job{Candidate: rest}}
			}
			break
		}
		job := Job{Candidate: c, SubmittedAt: time.Now()}
		events <- event{kind: eventDispatched, job: job}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			events <- o.processOne(ctx, job)
		}); err != nil {
			wg.Done()
			submitErr = common.OrchestrationError("submit "+c.Path, err)
			logger.Error("worker pool rejected document", "path", c.Path, "error", err)
			for _, rest := range found.Candidates[i:] {
				events <- event{kind: eventCancelled, job: Job{Candidate: rest}}
			}
			break
		}
	}

	wg.Wait()
	close(events)
	<-collected

	if submitErr != nil {
		report.Duration = time.Since(start)
		return report, submitErr
	}
	if ctx.Err() != nil {
		report.Cancelled = true
	}
	return o.finish(ctx, report, start)
}

func (o *Orchestrator) finish(ctx context.Context, report entity.BatchReport, start time.Time) (entity.BatchReport, error) {
	report.Duration = time.Since(start)
	logger := common.LoggerFrom(ctx, o.logger)
	logger.Info("batch finished",
		"root", report.Root,
		"discovered", report.Totals.Discovered,
		"succeeded", report.Totals.Succeeded,
		"partial", report.Totals.Partial,
		"failed", report.Totals.Failed,
		"skipped", report.Totals.Skipped,
		"cancelled", report.Totals.Cancelled,
		"unprocessed", report.Totals.Unprocessed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	if o.sink == nil {
		return report, nil
	}
	// the report is written even for a cancelled run
	if err := o.sink.WriteReport(context.WithoutCancel(ctx), report); err != nil {
		logger.Error("failed to write report", "error", err)
		return report, common.OrchestrationError("write report", err)
	}
	return report, nil
}

// processOne runs on a pool worker. It never panics and always returns
// exactly one event.
func (o *Orchestrator) processOne(ctx context.Context, job Job) (ev event) {
	c := job.Candidate
	started := time.Now()
	ctx = common.WithDocument(ctx, c.Path)
	logger := common.LoggerFrom(ctx, o.logger)
	hash := ""

	defer func() {
		if r := recover(); r != nil {
			logger.Error("document processing panicked", "panic", r, "stack", string(debug.Stack()))
			ev = event{kind: eventResult, job: job,
				result: failedResult(c, hash, started, constants.ReasonInternalError, fmt.Sprintf("panic: %v", r))}
		}
	}()

	if o.ledger != nil {
		h, err := ingest.HashFile(c.Path)
		if err != nil {
			logger.Warn("cannot hash document", "error", err)
		}
		hash = h
		if hash != "" && o.skipProcessed {
			rec, err := o.ledger.Get(ctx, hash)
			switch {
			case err == nil && rec.Status == constants.DocumentComplete:
				logger.Info("document already processed; skipping", "content_hash", hash, "run_id", rec.RunID)
				return event{kind: eventSkipped, job: job}
			case err != nil && !errors.Is(err, common.ErrNotFound):
				logger.Warn("ledger lookup failed", "error", err)
			}
		}
	}

	docCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res, err := o.proc.ProcessDocument(docCtx, c.Path)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return event{kind: eventCancelled, job: job}
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("document timed out", "timeout", o.timeout)
			res = failedResult(c, hash, started, constants.ReasonTimeout, err.Error())
		default:
			logger.Error("document processing failed", "error", err)
			res = failedResult(c, hash, started, constants.ReasonInternalError, err.Error())
		}
	}
	if res.ContentHash == "" {
		res.ContentHash = hash
	}
	if res.SizeBytes == 0 {
		res.SizeBytes = c.Size
	}
	return event{kind: eventResult, job: job, result: res}
}

func failedResult(c ingest.Candidate, hash string, started time.Time, reason constants.Reason, detail string) entity.DocumentResult {
	return entity.DocumentResult{
		Path:         c.Path,
		SizeBytes:    c.Size,
		ContentHash:  hash,
		Pages:        []entity.PageResult{},
		FailedPages:  []int{},
		BackendUsage: map[string]int{},
		Status:       constants.DocumentFailed,
		Reason:       reason,
		Detail:       detail,
		StartedAt:    started.UTC(),
		Duration:     time.Since(started),
	}
}

// collect is the single writer of report, the sink and the ledger.
func (o *Orchestrator) collect(ctx context.Context, report *entity.BatchReport, ev event) {
	t := &report.Totals
	path := ev.job.Candidate.Path

	switch ev.kind {
	case eventDispatched:
		t.Dispatched++
		return
	case eventCancelled:
		t.Cancelled++
		return
	case eventSkipped:
		t.Skipped++
		report.Skipped = append(report.Skipped, path)
		o.notify(entity.Progress{Path: path, Totals: *t})
		return
	}

	res := ev.result
	t.Completed++
	switch res.Status {
	case constants.DocumentComplete:
		t.Succeeded++
	case constants.DocumentPartialComplete:
		t.Partial++
	default:
		t.Failed++
	}
	report.Documents[res.Path] = res

	// finished documents are persisted even if the batch is being cancelled
	wctx := context.WithoutCancel(ctx)
	logger := common.LoggerFrom(common.WithDocument(ctx, path), o.logger)
	output := ""
	if o.sink != nil {
		out, err := o.sink.WriteDocument(wctx, ev.job.Candidate.RelPath, res)
		if err != nil {
			logger.Error("failed to write document output", "error", err)
		}
		output = out
	}
	if o.ledger != nil && res.ContentHash != "" {
		rec := repository.NewLedgerRecord(res, output, report.RunID)
		if err := o.ledger.Record(wctx, rec); err != nil {
			logger.Error("failed to record document in ledger", "error", err)
		}
	}
	o.notify(entity.Progress{Path: path, Status: res.Status, Totals: *t})
}

func (o *Orchestrator) notify(p entity.Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}
