package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WHAT: composing two images yields a PDF whose pages are sized exactly to
// each image's pixel dimensions, in input order.
// WHY: pixel units map directly onto page units; no DPI scaling may sneak in.
func TestComposeFromImagesPageDimensions(t *testing.T) {
	images := []InputImage{
		{Data: pngBytes(t, 300, 200), Format: Png},
		{Data: pngBytes(t, 150, 150), Format: Png},
	}
	out, err := composeFromImages(context.Background(), images)
	if err != nil {
		t.Fatalf("composeFromImages: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header")
	}
	for _, box := range []string{"/MediaBox [0 0 300 200]", "/MediaBox [0 0 150 150]"} {
		if !bytes.Contains(out, []byte(box)) {
			t.Errorf("composed PDF missing %q", box)
		}
	}
	if !bytes.Contains(out, []byte("/Count 2")) {
		t.Errorf("composed PDF should declare 2 pages")
	}
}

// WHAT: JPEG inputs are embedded byte-identical behind DCTDecode.
// WHY: re-encoding an already lossy image loses quality for no benefit.
func TestComposeFromImagesJPEGPassthrough(t *testing.T) {
	data := jpegBytes(t, 64, 48)
	out, err := composeFromImages(context.Background(), []InputImage{{Data: data, Format: Jpeg}})
	if err != nil {
		t.Fatalf("composeFromImages: %v", err)
	}
	if !bytes.Contains(out, []byte("/Filter /DCTDecode")) {
		t.Errorf("JPEG page should use DCTDecode")
	}
	if !bytes.Contains(out, data) {
		t.Errorf("JPEG bytes were re-encoded instead of passed through")
	}
}

func TestComposeFromImagesRejections(t *testing.T) {
	t.Run("empty input set", func(t *testing.T) {
		_, err := composeFromImages(context.Background(), nil)
		if KindOf(err) != KindEmptyInputSet {
			t.Fatalf("kind = %v, want %v (err: %v)", KindOf(err), KindEmptyInputSet, err)
		}
	})

	t.Run("unsupported format names the offender", func(t *testing.T) {
		images := []InputImage{
			{Data: pngBytes(t, 10, 10), Format: Png},
			{Data: []byte("GIF89a..."), Format: "gif"},
		}
		_, err := composeFromImages(context.Background(), images)
		if KindOf(err) != KindUnsupportedImageFormat {
			t.Fatalf("kind = %v, want %v (err: %v)", KindOf(err), KindUnsupportedImageFormat, err)
		}
		// The error must identify which image failed, 1-based.
		if !strings.Contains(err.Error(), "image 2") {
			t.Errorf("error %q does not name image 2", err)
		}
	})

	t.Run("corrupt payload is an embed failure", func(t *testing.T) {
		_, err := composeFromImages(context.Background(), []InputImage{
			{Data: []byte("not a png"), Format: Png},
		})
		if KindOf(err) != KindImageEmbedFailure {
			t.Fatalf("kind = %v, want %v (err: %v)", KindOf(err), KindImageEmbedFailure, err)
		}
		if !strings.Contains(err.Error(), "image 1") {
			t.Errorf("error %q does not name image 1", err)
		}
	})

	t.Run("over the input ceiling", func(t *testing.T) {
		one := pngBytes(t, 4, 4)
		images := make([]InputImage, maxComposeImages+1)
		for i := range images {
			images[i] = InputImage{Data: one, Format: Png}
		}
		_, err := composeFromImages(context.Background(), images)
		if KindOf(err) != KindPayloadTooLarge {
			t.Fatalf("kind = %v, want %v (err: %v)", KindOf(err), KindPayloadTooLarge, err)
		}
	})

	t.Run("expired context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := composeFromImages(ctx, []InputImage{{Data: pngBytes(t, 10, 10), Format: Png}})
		if err == nil {
			t.Fatal("expected error from canceled context")
		}
	})
}

// WHAT: the generated cross-reference table offsets point at the objects
// they index.
// WHY: a skewed xref makes the file unreadable for strict parsers even when
// every object body is correct.
func TestWriteImagePDFXrefOffsets(t *testing.T) {
	out, err := composeFromImages(context.Background(), []InputImage{
		{Data: pngBytes(t, 20, 30), Format: Png},
	})
	if err != nil {
		t.Fatalf("composeFromImages: %v", err)
	}

	// 5 objects: catalog, pages, page, contents, image.
	for nr := 1; nr <= 5; nr++ {
		marker := []byte(fmt.Sprintf("\n%d 0 obj\n", nr))
		idx := bytes.Index(out, marker)
		if idx < 0 {
			t.Fatalf("object %d not found", nr)
		}
		want := fmt.Sprintf("%010d 00000 n", idx+1)
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("xref entry %q for object %d not found", want, nr)
		}
	}
}
