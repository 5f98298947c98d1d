package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/pdf-extractor/internal/entity"
)

func TestRenderSummary(t *testing.T) {
	r := entity.NewBatchReport("run-42", "/docs", time.Now())
	r.Totals = entity.Totals{Discovered: 5, Succeeded: 3, Partial: 1, Failed: 1, Cancelled: 2}
	r.Cancelled = true
	r.Duration = 1500 * time.Millisecond

	out := renderSummary(r, "/out")
	assert.Contains(t, out, "Batch cancelled")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "/out")
	assert.Contains(t, out, "Cancelled")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"direct", "ocr"}, splitList(" direct, ,ocr,"))
	assert.Nil(t, splitList(""))
}
