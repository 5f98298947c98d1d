// Package pipeline assembles the extraction stack from configuration.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/pdf-extractor/internal/async"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/core"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-extractor/internal/ingest"
	"github.com/joseph-ayodele/pdf-extractor/internal/pdfdoc"
	"github.com/joseph-ayodele/pdf-extractor/internal/policy"
	"github.com/joseph-ayodele/pdf-extractor/internal/repository"
)

// Pipeline holds the wired components of one process.
type Pipeline struct {
	Logger       *slog.Logger
	Config       *common.Config
	Policy       *policy.Policy
	Processor    *core.Processor
	Sink         *export.FSSink
	Ledger       repository.DocumentRepository // nil when no ledger DSN is configured
	Orchestrator *async.Orchestrator

	db *repository.DB
}

// Options are optional collaborators handed to the backends and the orchestrator.
type Options struct {
	Deps     extract.Deps
	Progress func(entity.Progress)
}

// Build validates cfg and wires backends, policy, processor, sink, ledger and
// orchestrator. Callers must Close the pipeline.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Deps.Logger == nil {
		opts.Deps.Logger = logger
	}

	backends, err := extract.NewBackends(ctx, cfg, opts.Deps)
	if err != nil {
		return nil, err
	}
	pol := policy.FromConfig(backends, cfg, logger)
	proc := core.NewProcessor(logger, pdfdoc.NewOpener(logger), pol, core.Config{
		PageWorkers:   cfg.Workers.Pages,
		PageSeparator: cfg.Output.PageSeparator,
		MaxPages:      cfg.Extraction.MaxPages,
	})

	p := &Pipeline{
		Logger:    logger,
		Config:    cfg,
		Policy:    pol,
		Processor: proc,
		Sink:      export.NewFSSink(cfg.Output, logger),
	}

	orchOpts := []async.Option{
		async.WithWorkers(cfg.Workers.Documents),
		async.WithProcessTimeout(cfg.Workers.ProcessTimeout),
		async.WithDiscovery(ingest.OptionsFromConfig(cfg.Input)),
		async.WithSink(p.Sink),
	}
	if opts.Progress != nil {
		orchOpts = append(orchOpts, async.WithProgress(opts.Progress))
	}

	if cfg.Ledger.DSN != "" {
		db, err := repository.Open(ctx, LedgerConfig(cfg.Ledger), logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfigError, "open ledger", err)
		}
		repo := repository.NewDocumentRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close(logger)
			return nil, common.NewAppError(common.CodeConfigError, "ledger schema", err)
		}
		p.db, p.Ledger = db, repo
		orchOpts = append(orchOpts, async.WithLedger(repo, cfg.Ledger.SkipProcessed))
	}

	p.Orchestrator = async.NewOrchestrator(proc, logger, orchOpts...)
	logger.Info("pipeline ready",
		"backends", pol.Backends(),
		"workers", cfg.Workers.Documents,
		"page_workers", cfg.Workers.Pages,
		"output_dir", cfg.Output.Dir,
		"ledger", p.Ledger != nil)
	return p, nil
}

// LedgerConfig maps the ledger section onto the repository config.
func LedgerConfig(cfg common.LedgerConfig) repository.Config {
	return repository.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}
}

// Close releases the ledger connection, if any.
func (p *Pipeline) Close() {
	if p.db != nil {
		p.db.Close(p.Logger)
		p.db = nil
	}
}
