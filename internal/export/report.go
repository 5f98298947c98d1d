package export

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

//go:embed report.schema.json
var reportSchemaDoc []byte

var (
	reportSchemaOnce sync.Once
	reportSchema     *jsonschema.Schema
	reportSchemaErr  error
)

func loadReportSchema() (*jsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		reportSchema, reportSchemaErr = compileSchema("report.schema.json", reportSchemaDoc)
	})
	return reportSchema, reportSchemaErr
}

// ReportJSON is the serialized form of a BatchReport.
type ReportJSON struct {
	RunID       string                   `json:"run_id"`
	Root        string                   `json:"root"`
	StartedAt   time.Time                `json:"started_at"`
	DurationMS  int64                    `json:"duration_ms"`
	Cancelled   bool                     `json:"cancelled"`
	Totals      entity.Totals            `json:"totals"`
	Documents   []DocumentSummary        `json:"documents"`
	Unprocessed []entity.UnprocessedFile `json:"unprocessed"`
	Skipped     []string                 `json:"skipped"`
}

// DocumentSummary is one report row.
type DocumentSummary struct {
	Path         string                   `json:"path"`
	ContentHash  string                   `json:"content_hash,omitempty"`
	SizeBytes    int64                    `json:"size_bytes"`
	Status       constants.DocumentStatus `json:"status"`
	Pages        int                      `json:"pages"`
	FailedPages  []int                    `json:"failed_pages"`
	Reason       constants.Reason         `json:"reason,omitempty"`
	Detail       string                   `json:"detail,omitempty"`
	BackendUsage map[string]int           `json:"backend_usage"`
	DurationMS   int64                    `json:"duration_ms"`
}

// NewReportJSON flattens r, ordering documents by path.
func NewReportJSON(r entity.BatchReport) ReportJSON {
	out := ReportJSON{
		RunID:       r.RunID,
		Root:        r.Root,
		StartedAt:   r.StartedAt.UTC(),
		DurationMS:  r.Duration.Milliseconds(),
		Cancelled:   r.Cancelled,
		Totals:      r.Totals,
		Documents:   make([]DocumentSummary, 0, len(r.Documents)),
		Unprocessed: r.Unprocessed,
		Skipped:     r.Skipped,
	}
	if out.Unprocessed == nil {
		out.Unprocessed = []entity.UnprocessedFile{}
	}
	if out.Skipped == nil {
		out.Skipped = []string{}
	}
	for _, d := range r.Documents {
		out.Documents = append(out.Documents, summarize(d))
	}
	sort.Slice(out.Documents, func(i, j int) bool { return out.Documents[i].Path < out.Documents[j].Path })
	return out
}

func summarize(d entity.DocumentResult) DocumentSummary {
	failed := d.FailedPages
	if failed == nil {
		failed = []int{}
	}
	usage := d.BackendUsage
	if usage == nil {
		usage = map[string]int{}
	}
	return DocumentSummary{
		Path:         d.Path,
		ContentHash:  d.ContentHash,
		SizeBytes:    d.SizeBytes,
		Status:       d.Status,
		Pages:        d.PageCount(),
		FailedPages:  failed,
		Reason:       d.Reason,
		Detail:       d.Detail,
		BackendUsage: usage,
		DurationMS:   d.Duration.Milliseconds(),
	}
}

// MarshalReport encodes r and validates it against the embedded report schema.
func MarshalReport(r entity.BatchReport) ([]byte, error) {
	data, err := json.MarshalIndent(NewReportJSON(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	schema, err := loadReportSchema()
	if err != nil {
		return nil, err
	}
	if err := ValidateJSONAgainstSchema(schema, data); err != nil {
		return nil, err
	}
	return data, nil
}
