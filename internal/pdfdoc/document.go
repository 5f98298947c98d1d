// Package pdfdoc opens PDF files and exposes their pages to extraction backends.
//
// Structure (page count, page boxes) comes from pdfcpu; the text layer comes
// from ledongthuc/pdf. A file is only considered unopenable when neither
// library can parse it.
package pdfdoc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/pdf-extractor/internal/common"
)

// US Letter in points, used when a page box cannot be read.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
	pointsPerInch     = 72.0
)

// ErrNoTextLayer is returned by Page.PlainText when the text layer could not be parsed.
var ErrNoTextLayer = errors.New("pdf text layer unavailable")

// Document is an opened PDF. It owns its pages; a Page is only a view.
type Document struct {
	Path        string
	Size        int64
	ContentHash string // sha256 hex of the file bytes

	pages []Page

	mu      sync.Mutex // guards text
	text    *pdf.Reader
	textErr error
}

// Page is one page of a Document, indexed from 0.
type Page struct {
	Index  int
	Width  float64 // points
	Height float64 // points
	doc    *Document
}

// Opener opens documents from the local filesystem.
type Opener struct {
	logger *slog.Logger
}

func NewOpener(logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{logger: logger}
}

// Open reads and parses the file at path. The returned error is a DOCUMENT_FATAL
// AppError when no parser accepts the file.
func (o *Opener) Open(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.DocumentFatalError("read "+path, err)
	}
	if len(data) == 0 {
		return nil, common.DocumentFatalError("read "+path, errors.New("empty file"))
	}

	sum := sha256.Sum256(data)
	doc := &Document{Path: path, Size: int64(len(data)), ContentHash: hex.EncodeToString(sum[:])}

	dims, structErr := readStructure(data)
	if structErr != nil {
		o.logger.Warn("pdfcpu could not parse document", "path", path, "error", structErr)
	}

	doc.text, doc.textErr = openTextLayer(data)
	if doc.textErr != nil {
		o.logger.Warn("text layer unavailable", "path", path, "error", doc.textErr)
	}

	switch {
	case structErr == nil:
		doc.pages = make([]Page, len(dims))
		for i, d := range dims {
			doc.pages[i] = newPage(doc, i, d.w, d.h)
		}
	case doc.textErr == nil:
		n := doc.text.NumPage()
		doc.pages = make([]Page, n)
		for i := 0; i < n; i++ {
			w, h := mediaBox(doc.text.Page(i + 1))
			doc.pages[i] = newPage(doc, i, w, h)
		}
	default:
		return nil, common.DocumentFatalError("parse "+path, errors.Join(structErr, doc.textErr))
	}

	o.logger.Debug("document opened", "path", path, "pages", len(doc.pages), "size_bytes", doc.Size)
	return doc, nil
}

// Pages returns the document pages in index order.
func (d *Document) Pages() []Page {
	return d.pages
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// HasTextLayer reports whether the text layer parser accepted the file.
func (d *Document) HasTextLayer() bool {
	return d.textErr == nil && d.text != nil
}

// Document returns the owning document.
func (p Page) Document() *Document {
	return p.doc
}

// Path returns the file path of the owning document.
func (p Page) Path() string {
	if p.doc == nil {
		return ""
	}
	return p.doc.Path
}

// Number is the 1-based page number used by PDF tools.
func (p Page) Number() int {
	return p.Index + 1
}

// AreaSquareInches returns the page area, falling back to US Letter.
func (p Page) AreaSquareInches() float64 {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultPageWidth, DefaultPageHeight
	}
	return (w / pointsPerInch) * (h / pointsPerInch)
}

// PlainText returns the text layer of the page.
func (p Page) PlainText() (text string, err error) {
	d := p.doc
	if d == nil || !d.HasTextLayer() {
		return "", ErrNoTextLayer
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("text layer panic on page %d: %v", p.Number(), r)
		}
	}()

	pg := d.text.Page(p.Number())
	if pg.V.IsNull() {
		return "", fmt.Errorf("page %d not found in text layer", p.Number())
	}
	return pg.GetPlainText(nil)
}

// DetachedPage builds a page of an unparsed file at path. It has no text layer;
// rasterizing backends only need the path and index.
func DetachedPage(path string, index int, width, height float64) Page {
	return newPage(&Document{Path: path}, index, width, height)
}

func newPage(doc *Document, index int, w, h float64) Page {
	return Page{Index: index, Width: w, Height: h, doc: doc}
}

type dim struct{ w, h float64 }

func readStructure(data []byte) (dims []dim, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	pd, err := ctx.PageDims()
	if err != nil {
		return nil, err
	}
	dims = make([]dim, ctx.PageCount)
	for i := range dims {
		if i < len(pd) {
			dims[i] = dim{w: pd[i].Width, h: pd[i].Height}
		}
	}
	return dims, nil
}

func openTextLayer(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// mediaBox reads the page box, looking one level up the page tree.
func mediaBox(pg pdf.Page) (w, h float64) {
	defer func() {
		if recover() != nil {
			w, h = 0, 0
		}
	}()
	box := pg.V.Key("MediaBox")
	if box.Kind() != pdf.Array {
		box = pg.V.Key("Parent").Key("MediaBox")
	}
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return 0, 0
	}
	return box.Index(2).Float64() - box.Index(0).Float64(), box.Index(3).Float64() - box.Index(1).Float64()
}
