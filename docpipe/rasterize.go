package docpipe

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// baseDPI is the PDF user-space resolution; a scale factor of 1.0 renders at
// exactly the page's intrinsic size.
const baseDPI = 72.0

// renderPage rasterizes the page to a pixel surface sized intrinsic × scale
// and encodes it in the requested format. JPEG quality in [0,1] maps
// linearly onto the encoder's 1-100 range.
//
// Arbitrarily large scale factors are accepted here; bounding the resulting
// memory is the guard layer's concern, not the rasterizer's.
func renderPage(p *Page, scale float64, format ImageFormat, jpegQuality float64) ([]byte, error) {
	fz, err := p.doc.renderer()
	if err != nil {
		return nil, err
	}

	// go-fitz pages are 0-based.
	img, err := fz.ImageDPI(p.nr-1, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", p.nr, err)
	}

	var buf bytes.Buffer
	switch format {
	case Jpeg:
		q := int(jpegQuality*99) + 1 // [0,1] -> [1,100]
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q))
	case Png:
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, failf(KindUnsupportedImageFormat, "unsupported target format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode page %d as %s: %w", p.nr, format, err)
	}
	return buf.Bytes(), nil
}
