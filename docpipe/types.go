package docpipe

import "fmt"

// ImageFormat tags an encoded image payload.
type ImageFormat string

const (
	Png  ImageFormat = "png"
	Jpeg ImageFormat = "jpg"
)

// Ext returns the filename extension for the format.
func (f ImageFormat) Ext() string { return string(f) }

// Upload is the validated boundary input for every PDF-consuming operation.
type Upload struct {
	// ClientID keys the per-client concurrency counter.
	ClientID string
	// Filename and DeclaredType are cross-validated against the byte
	// signature; either may be empty when the transport has no metadata.
	Filename     string
	DeclaredType string
	Data         []byte
}

// ConvertOptions controls page rasterization. Immutable per call.
type ConvertOptions struct {
	// Format of the rendered pages (default Png).
	Format ImageFormat
	// Scale multiplies the intrinsic page size (default 1.0, must be > 0).
	Scale float64
	// JPEGQuality in [0,1] maps linearly onto the encoder's 1-100 range
	// (default 0.9). Ignored for PNG.
	JPEGQuality float64
}

func (o *ConvertOptions) defaults() error {
	if o.Format == "" {
		o.Format = Png
	}
	if o.Format != Png && o.Format != Jpeg {
		return failf(KindUnsupportedImageFormat, "unsupported target format %q", o.Format)
	}
	if o.Scale == 0 {
		o.Scale = 1.0
	}
	if o.Scale < 0 {
		return failf(KindInternal, "scale must be positive, got %v", o.Scale)
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = 0.9
	}
	if o.JPEGQuality < 0 || o.JPEGQuality > 1 {
		return failf(KindInternal, "jpeg quality must be in [0,1], got %v", o.JPEGQuality)
	}
	return nil
}

// ConvertedPage is one rasterized page ready for packaging.
type ConvertedPage struct {
	PageNumber int
	Data       []byte
	Filename   string
}

// ExtractedImage is one embedded image recovered from a page, in content
// walk order. Index is 1-based; filenames are unique within a page.
type ExtractedImage struct {
	PageNumber int
	Index      int
	Data       []byte
	Format     ImageFormat
	Filename   string
}

// ExtractedPageContent is the full recovered content of one page. Produced
// once per page and immutable thereafter.
type ExtractedPageContent struct {
	PageNumber int
	Text       string
	Images     []ExtractedImage
	Quality    *TextQuality
}

// InputImage is one image of a reverse-composition input set.
type InputImage struct {
	Data   []byte
	Format ImageFormat
}

// ReconstructOptions controls word-document reconstruction.
type ReconstructOptions struct {
	IncludeImages    bool
	InsertPageBreaks bool
}

// DefaultReconstructOptions enables images and page breaks.
func DefaultReconstructOptions() ReconstructOptions {
	return ReconstructOptions{IncludeImages: true, InsertPageBreaks: true}
}

func pageImageFilename(pageNr, idx int, f ImageFormat) string {
	return fmt.Sprintf("page-%d-image-%d.%s", pageNr, idx, f.Ext())
}
