package entity

import (
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// LedgerRecord is one processed document as stored in the ledger.
type LedgerRecord struct {
	ContentHash  string                   `json:"content_hash"`
	SourcePath   string                   `json:"source_path"`
	SizeBytes    int64                    `json:"size_bytes"`
	Status       constants.DocumentStatus `json:"status"`
	Pages        int                      `json:"pages"`
	FailedPages  int                      `json:"failed_pages"`
	OutputPath   string                   `json:"output_path,omitempty"`
	RunID        string                   `json:"run_id"`
	ProcessedAt  time.Time                `json:"processed_at"`
	DurationMS   int64                    `json:"duration_ms"`
	BackendsUsed string                   `json:"backends_used"` // e.g. "direct=3,ocr=1"
}
