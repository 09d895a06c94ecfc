package docpipe

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
)

// maxComposeImages caps one reverse-composition input set.
const maxComposeImages = 20

// composedImage is an input image normalized for embedding: intrinsic pixel
// dimensions plus a PDF-ready stream.
type composedImage struct {
	width      int
	height     int
	colorSpace string
	filter     string
	data       []byte
}

// composeFromImages builds a new PDF from a sequence of input images, one
// page per image, in the given order. Each page is sized exactly to the
// image's intrinsic pixel dimensions (pixel units used directly as page
// units, no DPI scaling) and the image is drawn filling the full page.
//
// Unlike extraction, this path is all-or-nothing: a single embed failure
// aborts the whole call with an index-qualified error, because a partially
// composed document would mislead the caller.
func composeFromImages(ctx context.Context, images []InputImage) ([]byte, error) {
	if len(images) == 0 {
		return nil, failf(KindEmptyInputSet, "no input images")
	}
	if len(images) > maxComposeImages {
		return nil, failf(KindPayloadTooLarge, "%d input images (max %d)", len(images), maxComposeImages)
	}

	embedded := make([]composedImage, 0, len(images))
	for i, in := range images {
		if err := ctx.Err(); err != nil {
			return nil, classifyCtx(err)
		}
		var (
			emb composedImage
			err error
		)
		switch in.Format {
		case Jpeg:
			emb, err = embedJPEG(in.Data)
		case Png:
			emb, err = embedPNG(in.Data)
		default:
			return nil, failf(KindUnsupportedImageFormat, "image %d: format %q", i+1, in.Format)
		}
		if err != nil {
			return nil, fail(KindImageEmbedFailure, fmt.Sprintf("image %d", i+1), err)
		}
		embedded = append(embedded, emb)
	}

	return writeImagePDF(embedded), nil
}

// embedJPEG wraps an already-encoded JPEG without re-encoding: the bytes go
// into the PDF behind a DCTDecode filter unchanged.
func embedJPEG(data []byte) (composedImage, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return composedImage{}, fmt.Errorf("decode jpeg header: %w", err)
	}
	cs := "DeviceRGB"
	switch cfg.ColorModel {
	case color.GrayModel:
		cs = "DeviceGray"
	case color.CMYKModel:
		cs = "DeviceCMYK"
	}
	return composedImage{
		width:      cfg.Width,
		height:     cfg.Height,
		colorSpace: cs,
		filter:     "DCTDecode",
		data:       data,
	}, nil
}

// embedPNG decodes the PNG, flattens any alpha onto white and stores the
// pixels as zlib-compressed RGB samples.
func embedPNG(data []byte) (composedImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return composedImage{}, fmt.Errorf("decode png: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return composedImage{}, fmt.Errorf("empty image")
	}

	flat := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	rgb := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := flat.Pix[y*flat.Stride : y*flat.Stride+w*4]
		for x := 0; x < w; x++ {
			rgb = append(rgb, row[x*4], row[x*4+1], row[x*4+2])
		}
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return composedImage{}, err
	}
	if _, err := zw.Write(rgb); err != nil {
		return composedImage{}, fmt.Errorf("compress samples: %w", err)
	}
	if err := zw.Close(); err != nil {
		return composedImage{}, fmt.Errorf("compress samples: %w", err)
	}

	return composedImage{
		width:      w,
		height:     h,
		colorSpace: "DeviceRGB",
		filter:     "FlateDecode",
		data:       buf.Bytes(),
	}, nil
}

// writeImagePDF serializes the embedded images into a complete single-xref
// PDF: one page object, one content stream and one image XObject per image.
func writeImagePDF(images []composedImage) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	addObject := func(body []byte) int {
		offsets = append(offsets, buf.Len())
		nr := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n", nr)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
		return nr
	}

	// Object numbers are deterministic: 1 catalog, 2 page tree, then a
	// (page, contents, xobject) triple per image.
	pageObj := func(i int) int { return 3 + i*3 }

	addObject([]byte("<< /Type /Catalog /Pages 2 0 R >>"))

	var kids bytes.Buffer
	for i := range images {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", pageObj(i))
	}
	addObject(fmt.Appendf(nil, "<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(images)))

	for i, img := range images {
		addObject(fmt.Appendf(nil,
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
				"/Resources << /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>",
			img.width, img.height, pageObj(i)+2, pageObj(i)+1))

		content := fmt.Sprintf("q\n%d 0 0 %d 0 0 cm\n/Im0 Do\nQ\n", img.width, img.height)
		addObject(fmt.Appendf(nil, "<< /Length %d >>\nstream\n%sendstream", len(content), content))

		var x bytes.Buffer
		fmt.Fprintf(&x, "<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
			"/ColorSpace /%s /BitsPerComponent 8 /Filter /%s /Length %d >>\nstream\n",
			img.width, img.height, img.colorSpace, img.filter, len(img.data))
		x.Write(img.data)
		x.WriteString("\nendstream")
		addObject(x.Bytes())
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return buf.Bytes()
}
