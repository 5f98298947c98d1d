package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/pdf-extractor/constants"
)

// PageResult is the final decision for one page.
type PageResult struct {
	Index    int                 `json:"index"`
	State    constants.PageState `json:"state"`
	Accepted *Attempt            `json:"accepted,omitempty"`
	Attempts []Attempt           `json:"attempts"` // trial order
}

// Text returns the accepted text, or "" for an exhausted page.
func (p PageResult) Text() string {
	if p.Accepted == nil {
		return ""
	}
	return p.Accepted.Outcome.Text
}

// DocumentResult is the aggregated outcome of one document run.
type DocumentResult struct {
	Path         string                   `json:"path"`
	SizeBytes    int64                    `json:"size_bytes"`
	ContentHash  string                   `json:"content_hash,omitempty"` // sha256 hex
	Pages        []PageResult             `json:"pages"`
	Text         string                   `json:"-"`
	Status       constants.DocumentStatus `json:"status"`
	FailedPages  []int                    `json:"failed_pages"`
	Reason       constants.Reason         `json:"reason,omitempty"` // document level only
	Detail       string                   `json:"detail,omitempty"`
	BackendUsage map[string]int           `json:"backend_usage"`
	StartedAt    time.Time                `json:"started_at"`
	Duration     time.Duration            `json:"duration"`
}

// PageCount returns the number of page results.
func (d DocumentResult) PageCount() int {
	return len(d.Pages)
}

// AcceptedPages returns the number of pages with an accepted attempt.
func (d DocumentResult) AcceptedPages() int {
	return len(d.Pages) - len(d.FailedPages)
}

// FormatBackendUsage renders usage as "direct=3,ocr=1" in name order.
func FormatBackendUsage(usage map[string]int) string {
	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, usage[name])
	}
	return strings.Join(parts, ",")
}
