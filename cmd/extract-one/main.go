package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/export"
	"github.com/joseph-ayodele/pdf-extractor/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file layered over the environment")
		backends   = flag.String("backends", "", "comma-separated backend priority order")
		asJSON     = flag.Bool("json", false, "print the per-page decisions as JSON instead of plain text")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extract-one [-json] [-backends direct,ocr] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	if *backends != "" {
		cfg.Extraction.Backends = nil
		for _, b := range strings.Split(*backends, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Extraction.Backends = append(cfg.Extraction.Backends, b)
			}
		}
	}
	// single documents are never recorded or written to disk
	cfg.Ledger.DSN = ""
	cfg.Output.WriteReport = false
	cfg.Output.XLSX = false

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Workers.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Workers.ProcessTimeout)
		defer cancel()
	}

	p, err := pipeline.Build(ctx, cfg, logger, pipeline.Options{})
	if err != nil {
		logger.Error("build pipeline", "error", err)
		os.Exit(2)
	}
	defer p.Close()

	res, err := p.Processor.ProcessDocument(ctx, path)
	if err != nil {
		logger.Error("process document", "path", path, "error", err)
		os.Exit(2)
	}
	logger.Info("document processed",
		"path", path,
		"status", res.Status,
		"pages", len(res.Pages),
		"failed_pages", res.FailedPages,
		"duration_ms", res.Duration.Milliseconds())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export.NewDocumentJSON(res)); err != nil {
			logger.Error("encode result", "error", err)
			os.Exit(2)
		}
	} else {
		fmt.Println(res.Text)
	}

	if res.Status == constants.DocumentFailed {
		os.Exit(1)
	}
}
