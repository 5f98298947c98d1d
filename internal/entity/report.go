package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// UnprocessedFile is a discovered candidate that was never dispatched.
type UnprocessedFile struct {
	Path   string           `json:"path"`
	Reason constants.Reason `json:"reason"`
	Detail string           `json:"detail,omitempty"`
}

// Totals are the running counters of a batch.
type Totals struct {
	Discovered  int `json:"discovered"`
	Dispatched  int `json:"dispatched"`
	Completed   int `json:"completed"` // documents that produced a result, any status
	Succeeded   int `json:"succeeded"`
	Partial     int `json:"partial"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Cancelled   int `json:"cancelled"`
	Unprocessed int `json:"unprocessed"`
}

// Progress is delivered to the progress callback after each document.
type Progress struct {
	Path   string                   `json:"path"`
	Status constants.DocumentStatus `json:"status,omitempty"` // empty when skipped
	Totals Totals                   `json:"totals"`
}

// BatchReport is the consolidated outcome of a batch run.
type BatchReport struct {
	RunID       string                    `json:"run_id"`
	Root        string                    `json:"root"`
	Documents   map[string]DocumentResult `json:"documents"`
	Totals      Totals                    `json:"totals"`
	Unprocessed []UnprocessedFile         `json:"unprocessed"`
	Skipped     []string                  `json:"skipped"`
	Cancelled   bool                      `json:"cancelled"`
	StartedAt   time.Time                 `json:"started_at"`
	Duration    time.Duration             `json:"duration"`
}

// NewBatchReport returns an empty report for root.
func NewBatchReport(runID, root string, startedAt time.Time) BatchReport {
	return BatchReport{
		RunID:       runID,
		Root:        root,
		Documents:   map[string]DocumentResult{},
		Unprocessed: []UnprocessedFile{},
		Skipped:     []string{},
		StartedAt:   startedAt,
	}
}

// HasFailures reports whether any document reached Failed.
func (r BatchReport) HasFailures() bool {
	return r.Totals.Failed > 0
}
