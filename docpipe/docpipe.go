// Package docpipe converts PDF documents into page rasters, recovers their
// text and embedded images, composes new PDFs from image sets, and
// reconstructs editable Word documents. Every operation runs behind the
// guard package's admission checks: size ceiling, format cross-validation,
// complexity pre-scan, per-client concurrency cap and a wall-clock deadline.
//
// Documents are treated strictly as passive data. Nothing embedded in a PDF
// (JavaScript, actions, launch targets) is ever executed.
package docpipe

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/docforge/guard"
)

// Pipeline is the conversion service. One Pipeline serves many concurrent
// calls; the only shared mutable state is the per-client limiter.
type Pipeline struct {
	cfg     Config
	limiter *guard.ClientLimiter
}

// New creates a Pipeline. Zero fields of cfg take production defaults.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:     cfg,
		limiter: guard.NewClientLimiter(cfg.Guard.MaxPerClient),
	}
}

// admit runs every guardrail against a PDF upload, in cheapest-first order,
// before any parsing starts. On success it returns a deadline-bound context,
// its cancel func and the concurrency release; the caller must invoke both
// on every exit path.
func (p *Pipeline) admit(ctx context.Context, up Upload) (context.Context, context.CancelFunc, func(), error) {
	if err := p.cfg.Guard.CheckSize(int64(len(up.Data))); err != nil {
		return nil, nil, nil, classifyGuard(err)
	}

	detected, err := guard.CrossValidateFormat(up.Data, up.DeclaredType, up.Filename)
	if err != nil {
		return nil, nil, nil, classifyGuard(err)
	}
	if detected != guard.TypePDF {
		return nil, nil, nil, failf(KindFileTypeMismatch, "expected a PDF payload, signature says %s", detected)
	}

	if err := guard.PrecheckComplexity(up.Data, p.cfg.Guard.MaxPages); err != nil {
		return nil, nil, nil, classifyGuard(err)
	}

	release, err := p.limiter.Acquire(up.ClientID)
	if err != nil {
		return nil, nil, nil, classifyGuard(err)
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Guard.Timeout)
	return cctx, cancel, release, nil
}

// Convert rasterizes every page of the uploaded PDF and streams the results
// into w as a zip archive with one page-{N}.{ext} entry per page, in page
// order. Pages render in parallel, bounded by Config.Workers; archive writes
// stay strictly ordered regardless.
func (p *Pipeline) Convert(ctx context.Context, up Upload, opts ConvertOptions, w io.Writer) error {
	if err := opts.defaults(); err != nil {
		return err
	}

	cctx, cancel, release, err := p.admit(ctx, up)
	if err != nil {
		return err
	}
	defer cancel()
	defer release()

	doc, err := LoadDocument(up.Data)
	if err != nil {
		return err
	}
	defer doc.Close()

	zw := newArchiveWriter(w)
	if err := p.renderAll(cctx, doc, opts, zw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// renderAll fans page rendering out across the worker pool while the
// consumer writes pages in order. A slot channel sized to the pool bounds
// the lookahead window, so a slow early page cannot pile the whole
// document's rasters up in memory behind it.
func (p *Pipeline) renderAll(ctx context.Context, doc *Document, opts ConvertOptions, zw *zip.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	slots := make(chan chan ConvertedPage, p.cfg.Workers)

	go func() {
		defer close(slots)
		for nr := 1; nr <= doc.PageCount(); nr++ {
			out := make(chan ConvertedPage, 1)
			select {
			case slots <- out:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				page, err := doc.Page(nr)
				if err != nil {
					return err
				}
				data, err := renderPage(page, opts.Scale, opts.Format, opts.JPEGQuality)
				if err != nil {
					return err
				}
				out <- ConvertedPage{
					PageNumber: nr,
					Data:       data,
					Filename:   fmt.Sprintf("page-%d.%s", nr, opts.Format.Ext()),
				}
				return nil
			})
		}
	}()

	for out := range slots {
		select {
		case page := <-out:
			if err := packageConvertedPages(zw, page); err != nil {
				return err
			}
		case <-gctx.Done():
			// A worker failed or the deadline fired. Drain the remaining
			// slots so the producer can exit and close the channel: Wait
			// must never run concurrently with the producer's Go calls.
			for range slots {
			}
			if err := g.Wait(); err != nil {
				return classifyCtx(err)
			}
			return classifyCtx(ctx.Err())
		}
	}
	// slots is closed, so the producer has exited and no Go call can race
	// with Wait.
	if err := g.Wait(); err != nil {
		return classifyCtx(err)
	}
	return nil
}

// Extract recovers every page's text and embedded images and streams them
// into w as a zip archive: page-{N}.txt per page, plus a page-{N}-images/
// group only for pages that yielded at least one image.
//
// Extraction walks pages sequentially; the structural parse context is not
// safe for concurrent stream decoding. The deadline is still honored between
// pages.
func (p *Pipeline) Extract(ctx context.Context, up Upload, w io.Writer) error {
	cctx, cancel, release, err := p.admit(ctx, up)
	if err != nil {
		return err
	}
	defer cancel()
	defer release()

	doc, err := LoadDocument(up.Data)
	if err != nil {
		return err
	}
	defer doc.Close()

	zw := newArchiveWriter(w)
	for nr := 1; nr <= doc.PageCount(); nr++ {
		content, err := p.extractPage(cctx, doc, nr)
		if err != nil {
			return err
		}
		if err := packageExtractedContent(zw, content); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// extractPage recovers one page's content and scores the text layer.
func (p *Pipeline) extractPage(ctx context.Context, doc *Document, nr int) (ExtractedPageContent, error) {
	if err := ctx.Err(); err != nil {
		return ExtractedPageContent{}, classifyCtx(err)
	}

	page, err := doc.Page(nr)
	if err != nil {
		return ExtractedPageContent{}, err
	}
	text, err := extractText(page)
	if err != nil {
		return ExtractedPageContent{}, err
	}
	images, err := extractImages(page, p.cfg.Logger)
	if err != nil {
		return ExtractedPageContent{}, err
	}

	quality := doc.scoreText(nr, text)
	if quality.NeedsOCR() {
		p.cfg.Logger.Info("page has no usable text layer",
			"page", nr, "chars", quality.Chars, "printable_ratio", quality.PrintableRatio)
	}

	return ExtractedPageContent{
		PageNumber: nr,
		Text:       text,
		Images:     images,
		Quality:    quality,
	}, nil
}

// Compose builds a new PDF from the given images, one page per image in
// input order, each page sized exactly to the image's pixel dimensions.
// The call is all-or-nothing: any invalid image aborts it with an
// index-qualified error.
func (p *Pipeline) Compose(ctx context.Context, clientID string, images []InputImage) ([]byte, error) {
	var total int64
	for _, img := range images {
		total += int64(len(img.Data))
	}
	if err := p.cfg.Guard.CheckSize(total); err != nil {
		return nil, classifyGuard(err)
	}

	release, err := p.limiter.Acquire(clientID)
	if err != nil {
		return nil, classifyGuard(err)
	}
	defer release()

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Guard.Timeout)
	defer cancel()

	return composeFromImages(cctx, images)
}

// ToWordDocument extracts the uploaded PDF's content and reconstructs it as
// an editable Word document. Layout is intentionally simplified: text
// becomes paragraphs, images are embedded inline at a fixed bounding box,
// and pages are separated by explicit breaks.
func (p *Pipeline) ToWordDocument(ctx context.Context, up Upload, opts ReconstructOptions) ([]byte, error) {
	cctx, cancel, release, err := p.admit(ctx, up)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer release()

	doc, err := LoadDocument(up.Data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := make([]ExtractedPageContent, 0, doc.PageCount())
	for nr := 1; nr <= doc.PageCount(); nr++ {
		content, err := p.extractPage(cctx, doc, nr)
		if err != nil {
			return nil, err
		}
		pages = append(pages, content)
	}

	return reconstructDocx(cctx, pages, opts, p.cfg.Logger)
}
