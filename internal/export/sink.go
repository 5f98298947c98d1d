// Package export persists extraction results: per-document text, optional
// per-document JSON, the batch report and its spreadsheet rendition.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

const (
	ReportJSONName = "report.json"
	ReportXLSXName = "report.xlsx"
)

// Sink receives finished documents and the final report. The orchestrator
// calls it from a single goroutine.
type Sink interface {
	// WriteDocument stores res under relPath and returns the text output path.
	WriteDocument(ctx context.Context, relPath string, res entity.DocumentResult) (string, error)
	WriteReport(ctx context.Context, report entity.BatchReport) error
}

// FSSink writes results below a directory, mirroring the input tree.
type FSSink struct {
	dir    string
	cfg    common.OutputConfig
	logger *slog.Logger
}

func NewFSSink(cfg common.OutputConfig, logger *slog.Logger) *FSSink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Format == "" {
		cfg.Format = constants.FormatText
	}
	return &FSSink{dir: cfg.Dir, cfg: cfg, logger: logger}
}

// Dir returns the output root.
func (s *FSSink) Dir() string { return s.dir }

// OutputPath returns where the text of relPath is written.
func (s *FSSink) OutputPath(relPath string) string {
	return filepath.Join(s.dir, filepath.FromSlash(relPath)+"."+constants.FormatText)
}

func (s *FSSink) WriteDocument(ctx context.Context, relPath string, res entity.DocumentResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.NewAppError(common.CodeSinkError, "output path escapes output dir: "+relPath, common.ErrInvalidInput)
	}

	txtPath := s.OutputPath(relPath)
	if err := writeFileAtomic(txtPath, []byte(res.Text)); err != nil {
		s.logger.Error("failed to write document text", "path", res.Path, "output", txtPath, "error", err)
		return "", common.NewAppError(common.CodeSinkError, "write text", err)
	}

	if s.cfg.Format == constants.FormatJSON {
		data, err := json.MarshalIndent(NewDocumentJSON(res), "", "  ")
		if err != nil {
			return "", common.NewAppError(common.CodeSinkError, "marshal document", err)
		}
		jsonPath := filepath.Join(s.dir, rel+"."+constants.FormatJSON)
		if err := writeFileAtomic(jsonPath, data); err != nil {
			s.logger.Error("failed to write document json", "path", res.Path, "output", jsonPath, "error", err)
			return "", common.NewAppError(common.CodeSinkError, "write json", err)
		}
	}

	s.logger.Debug("document written", "path", res.Path, "output", txtPath, "format", s.cfg.Format)
	return txtPath, nil
}

func (s *FSSink) WriteReport(ctx context.Context, report entity.BatchReport) error {
	if !s.cfg.WriteReport && !s.cfg.XLSX {
		return nil
	}
	start := time.Now()

	if s.cfg.WriteReport {
		data, err := MarshalReport(report)
		if err != nil {
			return common.NewAppError(common.CodeSinkError, "build report", err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, ReportJSONName), data); err != nil {
			return common.NewAppError(common.CodeSinkError, "write report", err)
		}
	}
	if s.cfg.XLSX {
		data, err := ReportXLSX(report)
		if err != nil {
			return common.NewAppError(common.CodeSinkError, "build xlsx report", err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, ReportXLSXName), data); err != nil {
			return common.NewAppError(common.CodeSinkError, "write xlsx report", err)
		}
	}

	s.logger.Info("export.report.ok",
		"dir", s.dir,
		"documents", len(report.Documents),
		"json", s.cfg.WriteReport,
		"xlsx", s.cfg.XLSX,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a half-written file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// DocumentJSON is the per-document structured output.
type DocumentJSON struct {
	DocumentSummary
	StartedAt   time.Time  `json:"started_at"`
	PageResults []PageJSON `json:"page_results"`
}

// PageJSON describes one page decision.
type PageJSON struct {
	Index    int                 `json:"index"`
	State    constants.PageState `json:"state"`
	Backend  string              `json:"backend,omitempty"`
	Chars    int                 `json:"chars"`
	Text     string              `json:"text"`
	Attempts []AttemptJSON       `json:"attempts"`
}

// AttemptJSON is one backend trial.
type AttemptJSON struct {
	Backend    string                `json:"backend"`
	Kind       constants.OutcomeKind `json:"kind"`
	Reason     constants.Reason      `json:"reason,omitempty"`
	Detail     string                `json:"detail,omitempty"`
	Confidence *float64              `json:"confidence,omitempty"`
	DurationMS int64                 `json:"duration_ms"`
}

func NewDocumentJSON(res entity.DocumentResult) DocumentJSON {
	out := DocumentJSON{
		DocumentSummary: summarize(res),
		StartedAt:       res.StartedAt.UTC(),
		PageResults:     make([]PageJSON, len(res.Pages)),
	}
	for i, p := range res.Pages {
		pj := PageJSON{
			Index:    p.Index,
			State:    p.State,
			Text:     p.Text(),
			Attempts: make([]AttemptJSON, len(p.Attempts)),
		}
		pj.Chars = len([]rune(pj.Text))
		if p.Accepted != nil {
			pj.Backend = p.Accepted.Backend
		}
		for j, a := range p.Attempts {
			pj.Attempts[j] = AttemptJSON{
				Backend:    a.Backend,
				Kind:       a.Outcome.Kind,
				Reason:     a.Outcome.Reason,
				Detail:     a.Outcome.Detail,
				Confidence: a.Outcome.Confidence,
				DurationMS: a.Duration.Milliseconds(),
			}
		}
		out.PageResults[i] = pj
	}
	return out
}
