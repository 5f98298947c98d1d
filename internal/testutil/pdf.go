// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

// PDF generates an A4 document with one page per entry. An empty entry
// produces a blank page.
func PDF(t testing.TB, pages ...string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	for _, text := range pages {
		pdf.AddPage()
		if text != "" {
			pdf.MultiCell(0, 5, text, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("failed to generate test PDF: %v", err)
	}
	return buf.Bytes()
}

// WritePDF writes PDF(pages...) to path, creating parent directories.
func WritePDF(t testing.TB, path string, pages ...string) string {
	t.Helper()
	WriteFile(t, path, PDF(t, pages...))
	return path
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Paragraph returns roughly n words of filler text, enough to pass any
// reasonable text-density bar when n is large.
func Paragraph(n int) string {
	words := strings.Fields("the quick brown fox jumps over the lazy dog while invoices and statements pile up on the desk")
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[i%len(words)])
	}
	return b.String()
}
