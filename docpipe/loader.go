package docpipe

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is a page-addressable handle over one parsed PDF. It is owned by
// exactly one conversion call, never shared, and must be closed at call end.
//
// The pdfcpu context serves structural access (content streams, resources);
// a MuPDF handle over the same bytes is opened lazily for rasterization so
// extraction-only calls never touch the renderer.
type Document struct {
	data []byte
	pctx *model.Context

	mu sync.Mutex
	fz *fitz.Document
}

// LoadDocument parses raw bytes into a Document. The document is treated
// strictly as passive data: embedded JavaScript, actions and other active
// content are never executed.
func LoadDocument(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fail(KindDocumentLoad, "structural parse failed", err)
	}
	if pctx.PageCount < 1 {
		return nil, failf(KindDocumentLoad, "document has no pages")
	}
	return &Document{data: data, pctx: pctx}, nil
}

// PageCount reports the number of pages.
func (d *Document) PageCount() int { return d.pctx.PageCount }

// Page returns a read-only reference to the 1-based page nr.
func (d *Document) Page(nr int) (*Page, error) {
	if nr < 1 || nr > d.pctx.PageCount {
		return nil, failf(KindDocumentLoad, "page %d out of range [1,%d]", nr, d.pctx.PageCount)
	}
	return &Page{doc: d, nr: nr}, nil
}

// renderer opens the MuPDF handle on first use.
func (d *Document) renderer() (*fitz.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fz != nil {
		return d.fz, nil
	}
	fz, err := fitz.NewFromMemory(d.data)
	if err != nil {
		return nil, fail(KindDocumentLoad, "open renderer", err)
	}
	d.fz = fz
	return fz, nil
}

// Close releases renderer resources. Safe to call multiple times.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fz == nil {
		return nil
	}
	fz := d.fz
	d.fz = nil
	if err := fz.Close(); err != nil {
		return fmt.Errorf("close renderer: %w", err)
	}
	return nil
}

// Page is a read-only reference into a Document. Page numbering is 1-based.
type Page struct {
	doc *Document
	nr  int
}

// Number returns the 1-based page number.
func (p *Page) Number() int { return p.nr }
