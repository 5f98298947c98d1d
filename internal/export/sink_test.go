package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pdf-extractor/constants"
	"github.com/joseph-ayodele/pdf-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

func sampleResult(path string) entity.DocumentResult {
	ok := entity.Attempt{Backend: "direct", PageIndex: 0, Outcome: entity.Success("hello"), Duration: 3 * time.Millisecond}
	return entity.DocumentResult{
		Path:        path,
		SizeBytes:   1234,
		ContentHash: "deadbeef",
		Pages: []entity.PageResult{
			{Index: 0, State: constants.PageAccepted, Accepted: &ok, Attempts: []entity.Attempt{ok}},
			{Index: 1, State: constants.PageExhaustedFailed, Attempts: []entity.Attempt{
				{Backend: "direct", PageIndex: 1, Outcome: entity.Failure(constants.ReasonEmptyPage, "")},
				{Backend: "ocr", PageIndex: 1, Outcome: entity.Failure(constants.ReasonEngineUnavailable, "tesseract missing")},
			}},
		},
		Text:         "hello\n\n",
		Status:       constants.DocumentPartialComplete,
		FailedPages:  []int{1},
		BackendUsage: map[string]int{"direct": 1},
		StartedAt:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Duration:     40 * time.Millisecond,
	}
}

func sampleReport() entity.BatchReport {
	r := entity.NewBatchReport("run-1", "/docs", time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	r.Documents["/docs/b.pdf"] = sampleResult("/docs/b.pdf")
	r.Documents["/docs/a.pdf"] = entity.DocumentResult{
		Path:   "/docs/a.pdf",
		Status: constants.DocumentFailed,
		Reason: constants.ReasonUnopenable,
		Detail: "no parser accepted the file",
	}
	r.Unprocessed = append(r.Unprocessed, entity.UnprocessedFile{Path: "/docs/empty.pdf", Reason: constants.ReasonZeroSize})
	r.Skipped = append(r.Skipped, "/docs/old.pdf")
	r.Totals = entity.Totals{Discovered: 4, Dispatched: 3, Completed: 2, Partial: 1, Failed: 1, Skipped: 1, Unprocessed: 1}
	r.Duration = 2 * time.Second
	return r
}

func TestWriteDocumentText(t *testing.T) {
	dir := t.TempDir()
	sink := NewFSSink(common.OutputConfig{Dir: dir, Format: constants.FormatText}, nil)

	out, err := sink.WriteDocument(context.Background(), "nested/b.pdf", sampleResult("/docs/nested/b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "b.pdf.txt"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "nested", "b.pdf.json"))

	leftovers, _ := filepath.Glob(filepath.Join(dir, "nested", "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestWriteDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	sink := NewFSSink(common.OutputConfig{Dir: dir, Format: constants.FormatJSON}, nil)

	_, err := sink.WriteDocument(context.Background(), "b.pdf", sampleResult("/docs/b.pdf"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "b.pdf.json"))
	require.NoError(t, err)
	var doc DocumentJSON
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, constants.DocumentPartialComplete, doc.Status)
	assert.Equal(t, 2, doc.Pages)
	require.Len(t, doc.PageResults, 2)
	assert.Equal(t, "direct", doc.PageResults[0].Backend)
	assert.Equal(t, 5, doc.PageResults[0].Chars)
	assert.Equal(t, constants.ReasonEngineUnavailable, doc.PageResults[1].Attempts[1].Reason)
}

func TestWriteDocumentRejectsEscapingPath(t *testing.T) {
	sink := NewFSSink(common.OutputConfig{Dir: t.TempDir()}, nil)
	_, err := sink.WriteDocument(context.Background(), "../outside.pdf", sampleResult("/x.pdf"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestMarshalReportValidates(t *testing.T) {
	data, err := MarshalReport(sampleReport())
	require.NoError(t, err)

	var got ReportJSON
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "/docs/a.pdf", got.Documents[0].Path, "documents are ordered by path")
	assert.Equal(t, []int{}, got.Documents[0].FailedPages)
	assert.Equal(t, int64(2000), got.DurationMS)
	assert.Equal(t, []string{"/docs/old.pdf"}, got.Skipped)
}

func TestMarshalReportEmpty(t *testing.T) {
	r := entity.NewBatchReport("run-empty", "/nothing", time.Now())
	data, err := MarshalReport(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"documents": []`)
}

func TestReportSchemaRejectsBadStatus(t *testing.T) {
	schema, err := loadReportSchema()
	require.NoError(t, err)

	r := NewReportJSON(sampleReport())
	r.Documents[0].Status = "MAYBE"
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Error(t, ValidateJSONAgainstSchema(schema, data))
}

func TestWriteReportFiles(t *testing.T) {
	dir := t.TempDir()
	sink := NewFSSink(common.OutputConfig{Dir: dir, WriteReport: true, XLSX: true}, nil)
	require.NoError(t, sink.WriteReport(context.Background(), sampleReport()))

	assert.FileExists(t, filepath.Join(dir, ReportJSONName))

	raw, err := os.ReadFile(filepath.Join(dir, ReportXLSXName))
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(documentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Path", rows[0][0])
	assert.Equal(t, "/docs/a.pdf", rows[1][0])
	assert.Equal(t, "FAILED", rows[1][1])
	assert.Equal(t, "PARTIAL_COMPLETE", rows[2][1])
	assert.Equal(t, "1", rows[2][3])
	assert.Equal(t, "direct=1", rows[2][4])

	unprocessed, err := f.GetRows(unprocessedSheet)
	require.NoError(t, err)
	require.Len(t, unprocessed, 2)
	assert.Equal(t, "zero_size", unprocessed[1][1])
}

func TestWriteReportDisabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFSSink(common.OutputConfig{Dir: dir}, nil).WriteReport(context.Background(), sampleReport()))
	assert.NoFileExists(t, filepath.Join(dir, ReportJSONName))
}
