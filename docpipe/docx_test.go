package docpipe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func docPart(t *testing.T, docx []byte, name string) string {
	t.Helper()
	entries := readArchive(t, docx)
	body, ok := entries[name]
	if !ok {
		t.Fatalf("docx missing part %s (have %v)", name, keys(entries))
	}
	return string(body)
}

// WHAT: a three-page document gets exactly two page breaks and one label
// heading per page.
// WHY: a break after the last page would add a trailing blank page in Word.
func TestReconstructDocxPageBreaksAndLabels(t *testing.T) {
	pages := []ExtractedPageContent{
		{PageNumber: 1, Text: "alpha"},
		{PageNumber: 2, Text: "beta"},
		{PageNumber: 3, Text: "gamma"},
	}
	out, err := reconstructDocx(context.Background(), pages, DefaultReconstructOptions(), discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	doc := docPart(t, out, "word/document.xml")
	if got := strings.Count(doc, `<w:br w:type="page"/>`); got != 2 {
		t.Errorf("page breaks = %d, want 2", got)
	}
	for _, label := range []string{"Page 1", "Page 2", "Page 3"} {
		if !strings.Contains(doc, label) {
			t.Errorf("missing page label %q", label)
		}
	}
}

// WHAT: single-page documents carry no page label and no page break.
func TestReconstructDocxSinglePage(t *testing.T) {
	pages := []ExtractedPageContent{{PageNumber: 1, Text: "solo"}}
	out, err := reconstructDocx(context.Background(), pages, DefaultReconstructOptions(), discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	doc := docPart(t, out, "word/document.xml")
	if strings.Contains(doc, "Page 1") {
		t.Errorf("single-page document should not be labeled")
	}
	if strings.Contains(doc, `w:type="page"`) {
		t.Errorf("single-page document should have no page break")
	}
	if !strings.Contains(doc, "solo") {
		t.Errorf("text content missing")
	}
}

// WHAT: line breaks split into paragraphs and blank lines survive as empty
// spacing paragraphs.
func TestReconstructDocxParagraphSplitting(t *testing.T) {
	pages := []ExtractedPageContent{{PageNumber: 1, Text: "first\n\nsecond"}}
	out, err := reconstructDocx(context.Background(), pages, DefaultReconstructOptions(), discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	doc := docPart(t, out, "word/document.xml")
	if !strings.Contains(doc, `<w:p/>`) {
		t.Errorf("blank line did not survive as an empty paragraph")
	}
	first := strings.Index(doc, "first")
	second := strings.Index(doc, "second")
	if first < 0 || second < 0 || second < first {
		t.Errorf("paragraph order broken: first at %d, second at %d", first, second)
	}
}

// WHAT: embedded images land in word/media/ with a matching relationship;
// images with an unusable payload are skipped, not fatal.
func TestReconstructDocxImages(t *testing.T) {
	pages := []ExtractedPageContent{{
		PageNumber: 1,
		Text:       "with images",
		Images: []ExtractedImage{
			{PageNumber: 1, Index: 1, Data: pngBytes(t, 8, 8), Format: Png, Filename: "page-1-image-1.png"},
			{PageNumber: 1, Index: 2, Data: nil, Format: Png, Filename: "page-1-image-2.png"},
			{PageNumber: 1, Index: 3, Data: []byte("x"), Format: "bmp", Filename: "page-1-image-3.bmp"},
		},
	}}
	out, err := reconstructDocx(context.Background(), pages, DefaultReconstructOptions(), discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	entries := readArchive(t, out)
	if _, ok := entries["word/media/page-1-image-1.png"]; !ok {
		t.Errorf("embeddable image missing from media (have %v)", keys(entries))
	}
	if _, ok := entries["word/media/page-1-image-2.png"]; ok {
		t.Errorf("empty image should have been skipped")
	}
	if _, ok := entries["word/media/page-1-image-3.bmp"]; ok {
		t.Errorf("unsupported format should have been skipped")
	}

	rels := docPart(t, out, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, "media/page-1-image-1.png") {
		t.Errorf("relationship for embedded image missing")
	}
	doc := docPart(t, out, "word/document.xml")
	if !strings.Contains(doc, "<a:blip r:embed=") {
		t.Errorf("document body has no image reference")
	}
}

// WHAT: IncludeImages=false drops images entirely.
func TestReconstructDocxImagesDisabled(t *testing.T) {
	pages := []ExtractedPageContent{{
		PageNumber: 1,
		Text:       "text only",
		Images: []ExtractedImage{
			{PageNumber: 1, Index: 1, Data: pngBytes(t, 8, 8), Format: Png, Filename: "page-1-image-1.png"},
		},
	}}
	opts := ReconstructOptions{IncludeImages: false, InsertPageBreaks: true}
	out, err := reconstructDocx(context.Background(), pages, opts, discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	entries := readArchive(t, out)
	for name := range entries {
		if strings.HasPrefix(name, "word/media/") {
			t.Errorf("media entry %s present with images disabled", name)
		}
	}
}

// WHAT: the OOXML container carries the mandatory package parts.
func TestReconstructDocxContainerParts(t *testing.T) {
	out, err := reconstructDocx(context.Background(),
		[]ExtractedPageContent{{PageNumber: 1, Text: "x"}},
		DefaultReconstructOptions(), discardLogger())
	if err != nil {
		t.Fatalf("reconstructDocx: %v", err)
	}

	entries := readArchive(t, out)
	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if _, ok := entries[part]; !ok {
			t.Errorf("missing container part %s", part)
		}
	}
	// One-inch margins, in twips.
	if !strings.Contains(string(entries["word/document.xml"]), `w:top="1440"`) {
		t.Errorf("section properties missing one-inch margins")
	}
}
