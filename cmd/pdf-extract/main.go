package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-extractor/internal/ingest"
	"github.com/joseph-ayodele/pdf-extractor/internal/pipeline"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailures = 1 // at least one document failed
	exitFatal    = 2 // configuration, discovery or orchestration error
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		root       = flag.String("root", "", "directory (or single PDF) to process; defaults to PDFX_INPUT_ROOT")
		out        = flag.String("out", "", "output directory for text files and reports")
		configPath = flag.String("config", "", "optional YAML config file layered over the environment")
		workers    = flag.Int("workers", 0, "concurrent documents (0 = config value)")
		pageWork   = flag.Int("page-workers", 0, "concurrent pages per document (0 = config value)")
		backends   = flag.String("backends", "", "comma-separated backend priority order, e.g. direct,ocr,vision")
		format     = flag.String("format", "", "per-document output format: txt or json")
		xlsx       = flag.Bool("xlsx", false, "also write report.xlsx")
		ledger     = flag.String("ledger", "", "ledger DSN (sqlite path or postgres:// URL)")
		force      = flag.Bool("force", false, "reprocess documents already recorded in the ledger")
		watch      = flag.Bool("watch", false, "keep running and reprocess when PDFs change under root")
		debounce   = flag.Duration("debounce", 2*time.Second, "quiet period before a watch-triggered run")
		verbose    = flag.Bool("v", false, "debug logging")
		quiet      = flag.Bool("q", false, "do not print the summary")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return exitFatal
	}

	// Flags win over file and environment
	if *root != "" {
		cfg.Input.Root = *root
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}
	if *workers > 0 {
		cfg.Workers.Documents = *workers
	}
	if *pageWork > 0 {
		cfg.Workers.Pages = *pageWork
	}
	if *backends != "" {
		cfg.Extraction.Backends = splitList(*backends)
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *xlsx {
		cfg.Output.XLSX = true
	}
	if *ledger != "" {
		cfg.Ledger.DSN = *ledger
	}
	if *force {
		cfg.Ledger.SkipProcessed = false
	}
	if cfg.Input.Root == "" {
		printError("Error: --root is required\n")
		return exitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress func(entity.Progress)
	if !*quiet {
		progress = printProgress
	}
	p, err := pipeline.Build(ctx, cfg, logger, pipeline.Options{Progress: progress})
	if err != nil {
		printError("Error: %v\n", err)
		return exitFatal
	}
	defer p.Close()

	code := runOnce(ctx, p, *quiet)
	if !*watch || code == exitFatal {
		return code
	}

	changes, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:       cfg.Input.Root,
		Extensions: cfg.Input.Extensions,
		SkipHidden: cfg.Input.SkipHidden,
		Debounce:   *debounce,
	}, logger)
	if err != nil {
		printError("Error: watch %s: %v\n", cfg.Input.Root, err)
		return exitFatal
	}
	logger.Info("watching for changes", "root", cfg.Input.Root)
	for paths := range changes {
		logger.Info("changes detected, starting run", "paths", len(paths))
		if code = runOnce(ctx, p, *quiet); code == exitFatal {
			return code
		}
	}
	logger.Info("watch stopped")
	return code
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, quiet bool) int {
	report, err := p.Orchestrator.Run(ctx, p.Config.Input.Root)
	if err != nil {
		// discovery and orchestration errors are the only ones Run returns
		printError("Error: %v\n", err)
		return exitFatal
	}
	if !quiet {
		fmt.Println(renderSummary(report, p.Sink.Dir()))
	}
	if report.HasFailures() {
		return exitFailures
	}
	return exitOK
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
