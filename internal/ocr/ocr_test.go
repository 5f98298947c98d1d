package ocr

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-extractor/internal/ocr/ocrtest"
)

func TestRasterizerRenderPageReleasesTempDir(t *testing.T) {
	runner := ocrtest.NewFakeRunner().Handle("pdftoppm", ocrtest.Pdftoppm())
	r := NewRasterizer(Config{DPI: 150}, runner, nil)

	img, release, err := r.RenderPage(context.Background(), "/docs/in.pdf", 3)
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.FileExists(t, img)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-r", "150", "-f", "3", "-l", "3", "-png", "-singlefile", "/docs/in.pdf"}, calls[0].Args[:9])

	release()
	_, statErr := os.Stat(filepath.Dir(img))
	assert.True(t, os.IsNotExist(statErr), "temp dir should be removed")
}

func TestRasterizerFailureStillReturnsRelease(t *testing.T) {
	runner := ocrtest.NewFakeRunner().Handle("pdftoppm", ocrtest.Failing("Syntax Error", errors.New("exit status 1")))
	r := NewRasterizer(Config{}, runner, nil)

	_, release, err := r.RenderPage(context.Background(), "/docs/in.pdf", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Syntax Error")
	require.NotNil(t, release)
	release()
}

func TestRasterizerMissingBinary(t *testing.T) {
	r := NewRasterizer(Config{}, ocrtest.NewFakeRunner(), nil)

	_, release, err := r.RenderPage(context.Background(), "/docs/in.pdf", 1)
	defer release()
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestTesseractCLIRecognize(t *testing.T) {
	runner := ocrtest.NewFakeRunner().
		Handle("tesseract", ocrtest.Tesseract("Invoice\t 42\r\n-----\r\n\r\n\r\n\r\nTotal  10.00  ", ocrtest.TSV(90, 70)))
	rec := NewTesseractCLI(Config{Language: "por", PSM: 6, TessdataDir: "/td"}, runner)

	got, err := rec.Recognize(context.Background(), "/tmp/page.png")
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42\n\nTotal 10.00", got.Text)
	assert.Nil(t, got.Confidence, "tsv pass is opt-in")

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/tmp/page.png", "stdout", "-l", "por", "--psm", "6", "--tessdata-dir", "/td"}, calls[0].Args)
}

func TestTesseractCLIConfidence(t *testing.T) {
	runner := ocrtest.NewFakeRunner().Handle("tesseract", ocrtest.Tesseract("some words", ocrtest.TSV(90, 70)))
	rec := NewTesseractCLI(Config{EnableTSVConfidence: true}, runner)

	got, err := rec.Recognize(context.Background(), "/tmp/page.png")
	require.NoError(t, err)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.8, *got.Confidence, 1e-9)
	assert.Equal(t, 2, runner.CallCount("tesseract"))
}

func TestTesseractCLIEmptyOutputSkipsConfidence(t *testing.T) {
	runner := ocrtest.NewFakeRunner().Handle("tesseract", ocrtest.Tesseract("  \n ", ocrtest.TSV(90)))
	rec := NewTesseractCLI(Config{EnableTSVConfidence: true}, runner)

	got, err := rec.Recognize(context.Background(), "/tmp/page.png")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.Nil(t, got.Confidence)
	assert.Equal(t, 1, runner.CallCount("tesseract"))
}

func TestMeanTSVConfidence(t *testing.T) {
	conf, ok := MeanTSVConfidence([]byte(ocrtest.TSV(100, 50, 60)))
	require.True(t, ok)
	assert.InDelta(t, 0.7, conf, 1e-9)

	_, ok = MeanTSVConfidence([]byte(ocrtest.TSV()))
	assert.False(t, ok)

	_, ok = MeanTSVConfidence(nil)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf and tabs", "a\r\nb\tc", "a\nb c"},
		{"blank lines collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"nul and bom", "\ufeffhel\x00lo", "hello"},
		{"form feed", "p1\fp2", "p1\np2"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
		{"trailing spaces", "x   \ny  ", "x\ny"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNewRecognizerUnknownEngine(t *testing.T) {
	_, err := NewRecognizer(Config{Engine: "abbyy"}, nil)
	assert.Error(t, err)

	rec, err := NewRecognizer(Config{}, ocrtest.NewFakeRunner())
	require.NoError(t, err)
	assert.IsType(t, &TesseractCLI{}, rec)
}
