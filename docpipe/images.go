package docpipe

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// extractImages walks the page's instruction sequence and recovers every
// painted external image resource, in walk order. A resolution or conversion
// failure for a single instruction is logged and skipped; the walk continues
// so one broken image never costs the rest of the page.
func extractImages(p *Page, logger *slog.Logger) ([]ExtractedImage, error) {
	instrs, err := p.instructions()
	if err != nil {
		return nil, err
	}

	xobjs, err := p.doc.imageXObjects(p.nr)
	if err != nil {
		// Partial success beats aborting the page: without a resource
		// table every paint resolves to nothing.
		logger.Warn("image resource table unavailable", "page", p.nr, "error", err)
		xobjs = nil
	}

	var images []ExtractedImage
	for _, in := range instrs {
		if in.kind != instrImage {
			continue
		}
		sd, ok := xobjs[in.name]
		if !ok {
			logger.Warn("image skipped",
				"page", p.nr, "resource", in.name,
				"error", failf(KindImageResolutionFailure, "resource %s not in page resource table", in.name))
			continue
		}
		data, format, err := convertResourceToBuffer(p.doc, sd)
		if err != nil {
			logger.Warn("image skipped",
				"page", p.nr, "resource", in.name,
				"error", fail(KindImageResolutionFailure, "convert resource "+in.name, err))
			continue
		}
		idx := len(images) + 1
		images = append(images, ExtractedImage{
			PageNumber: p.nr,
			Index:      idx,
			Data:       data,
			Format:     format,
			Filename:   pageImageFilename(p.nr, idx, format),
		})
	}
	return images, nil
}

// convertResourceToBuffer normalizes an embedded image resource into an
// output-ready encoded buffer.
//
// A resource whose raw bytes already carry a JPEG start-of-image marker is
// passed through byte-identical, avoiding a lossy re-encode. Anything else
// is treated as a raw pixel buffer (8-bit channels, alpha fully opaque when
// absent), rendered onto a fresh surface and encoded as PNG, the universal
// lossless fallback.
func convertResourceToBuffer(d *Document, sd types.StreamDict) ([]byte, ImageFormat, error) {
	if len(sd.Raw) >= 2 && sd.Raw[0] == 0xFF && sd.Raw[1] == 0xD8 {
		return sd.Raw, Jpeg, nil
	}

	if err := sd.Decode(); err != nil {
		return nil, "", fmt.Errorf("decode stream: %w", err)
	}

	w := d.derefInt(sd.Dict, "Width", 0)
	h := d.derefInt(sd.Dict, "Height", 0)
	if w <= 0 || h <= 0 {
		return nil, "", fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	bpc := d.derefInt(sd.Dict, "BitsPerComponent", 8)
	if bpc != 8 {
		return nil, "", fmt.Errorf("unsupported bits per component: %d", bpc)
	}

	comps, err := d.colorComponents(sd.Dict)
	if err != nil {
		return nil, "", err
	}
	samples := sd.Content
	if len(samples) < w*h*comps {
		return nil, "", fmt.Errorf("sample buffer too short: %d for %dx%dx%d", len(samples), w, h, comps)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * comps
			var r, g, b uint8
			switch comps {
			case 1:
				r, g, b = samples[off], samples[off], samples[off]
			case 3:
				r, g, b = samples[off], samples[off+1], samples[off+2]
			case 4:
				// Naive CMYK to RGB; good enough for a lossless dump.
				c, m, yy, k := int(samples[off]), int(samples[off+1]), int(samples[off+2]), int(samples[off+3])
				r = uint8((255 - c) * (255 - k) / 255)
				g = uint8((255 - m) * (255 - k) / 255)
				b = uint8((255 - yy) * (255 - k) / 255)
			}
			pix := img.PixOffset(x, y)
			img.Pix[pix+0] = r
			img.Pix[pix+1] = g
			img.Pix[pix+2] = b
			img.Pix[pix+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), Png, nil
}

// colorComponents determines the sample component count from the image's
// color space. Unsupported spaces (Indexed palettes, stencil masks) fail the
// individual image, which the extractor logs and skips.
func (d *Document) colorComponents(dict types.Dict) (int, error) {
	if mask, found := dict.Find("ImageMask"); found {
		if b, ok := mask.(types.Boolean); ok && bool(b) {
			return 0, fmt.Errorf("stencil mask without base image")
		}
	}

	csObj, found := dict.Find("ColorSpace")
	if !found {
		// No color space on a non-mask image; assume grayscale.
		return 1, nil
	}
	cs, err := d.pctx.Dereference(csObj)
	if err != nil {
		return 0, fmt.Errorf("color space: %w", err)
	}

	switch v := cs.(type) {
	case types.Name:
		switch v {
		case "DeviceGray", "CalGray":
			return 1, nil
		case "DeviceRGB", "CalRGB":
			return 3, nil
		case "DeviceCMYK":
			return 4, nil
		}
		return 0, fmt.Errorf("unsupported color space %s", v)

	case types.Array:
		if len(v) == 0 {
			return 0, fmt.Errorf("empty color space array")
		}
		family, _ := v[0].(types.Name)
		switch family {
		case "ICCBased":
			if len(v) < 2 {
				return 0, fmt.Errorf("ICCBased without stream")
			}
			streamDict, err := d.derefDict(v[1])
			if err != nil || streamDict == nil {
				return 0, fmt.Errorf("ICCBased stream: %w", err)
			}
			n := d.derefInt(streamDict, "N", 0)
			if n != 1 && n != 3 && n != 4 {
				return 0, fmt.Errorf("ICCBased with N=%d", n)
			}
			return n, nil
		default:
			return 0, fmt.Errorf("unsupported color space family %s", family)
		}

	default:
		return 0, fmt.Errorf("unexpected color space type %T", cs)
	}
}
