package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

const (
	documentsSheet   = "Documents"
	unprocessedSheet = "Unprocessed"
)

// ReportXLSX renders r as a workbook with one row per document and a second
// sheet listing files that were never dispatched.
func ReportXLSX(r entity.BatchReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// rename the default sheet rather than leaving an empty "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(unprocessedSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(documentsSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Path",
		"Status",
		"Pages",
		"Failed Pages",
		"Backends",
		"Reason",
		"Duration (ms)",
		"SHA-256",
	}
	writeRow(f, documentsSheet, 1, toAny(headers)...)

	report := NewReportJSON(r)
	for i, d := range report.Documents {
		writeRow(f, documentsSheet, i+2,
			d.Path,
			string(d.Status),
			d.Pages,
			joinInts(d.FailedPages),
			entity.FormatBackendUsage(d.BackendUsage),
			truncate(strings.TrimSpace(string(d.Reason)+" "+d.Detail), 140),
			d.DurationMS,
			d.ContentHash,
		)
	}

	writeRow(f, unprocessedSheet, 1, "Path", "Reason", "Detail")
	for i, u := range report.Unprocessed {
		writeRow(f, unprocessedSheet, i+2, u.Path, string(u.Reason), truncate(u.Detail, 140))
	}

	// Widen a few columns
	_ = f.SetColWidth(documentsSheet, "A", "A", 60) // path
	_ = f.SetColWidth(documentsSheet, "B", "B", 18) // status
	_ = f.SetColWidth(documentsSheet, "D", "E", 22)
	_ = f.SetColWidth(documentsSheet, "F", "F", 48) // reason
	_ = f.SetColWidth(documentsSheet, "H", "H", 66) // hash
	_ = f.SetColWidth(unprocessedSheet, "A", "A", 60)
	_ = f.SetColWidth(unprocessedSheet, "C", "C", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
