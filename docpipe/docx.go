package docpipe

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
)

// Fixed bounding box for embedded images, in EMU (914400 per inch). Every
// image is placed at this size regardless of its native aspect ratio; a
// cosmetic limitation, not a correctness defect.
const (
	imageBoxCx = 4572000 // 5.0 in
	imageBoxCy = 3200400 // 3.5 in
)

// wordNamespaces carries the declarations needed by the main document part.
const wordNamespaces = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`

type mediaPart struct {
	relID    string
	filename string
	data     []byte
}

// reconstructDocx maps extracted per-page content into a Word document:
// word/document.xml plus media parts inside the OOXML zip container.
//
// Per page, in order: an optional page-label heading (only when the document
// has more than one page), the text split into paragraphs on line breaks
// with blank lines kept as spacing paragraphs, the page's images, and an
// explicit page break between pages when requested. Individual image embed
// failures are logged and skipped, consistent with the extractor's
// partial-success policy. Margins are fixed at one inch on all sides.
func reconstructDocx(ctx context.Context, pages []ExtractedPageContent, opts ReconstructOptions, logger *slog.Logger) ([]byte, error) {
	var (
		body  bytes.Buffer
		media []mediaPart
	)

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, classifyCtx(err)
		}

		if len(pages) > 1 {
			writeHeadingParagraph(&body, fmt.Sprintf("Page %d", page.PageNumber))
		}

		for _, line := range strings.Split(page.Text, "\n") {
			writeTextParagraph(&body, line)
		}

		if opts.IncludeImages {
			for _, img := range page.Images {
				if img.Format != Png && img.Format != Jpeg {
					logger.Warn("image embed skipped",
						"page", page.PageNumber, "image", img.Index,
						"error", failf(KindImageEmbedFailure, "unsupported format %q", img.Format))
					continue
				}
				if len(img.Data) == 0 {
					logger.Warn("image embed skipped",
						"page", page.PageNumber, "image", img.Index,
						"error", failf(KindImageEmbedFailure, "empty payload"))
					continue
				}
				relID := fmt.Sprintf("rId%d", len(media)+10)
				media = append(media, mediaPart{relID: relID, filename: img.Filename, data: img.Data})
				writeImageParagraph(&body, relID, img.Filename, len(media))
			}
		}

		if opts.InsertPageBreaks && i < len(pages)-1 {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
	}

	var doc bytes.Buffer
	doc.WriteString(xml.Header)
	fmt.Fprintf(&doc, "<w:document %s><w:body>", wordNamespaces)
	doc.Write(body.Bytes())
	// One-inch margins (1440 twips).
	doc.WriteString(`<w:sectPr><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`)
	doc.WriteString("</w:body></w:document>")

	return packDocx(doc.Bytes(), media)
}

func writeHeadingParagraph(b *bytes.Buffer, text string) {
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">`)
	b.WriteString(xmlEscape(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeTextParagraph(b *bytes.Buffer, text string) {
	if strings.TrimSpace(text) == "" {
		// Blank lines survive as spacing-only paragraphs.
		b.WriteString(`<w:p/>`)
		return
	}
	b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
	b.WriteString(xmlEscape(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeImageParagraph(b *bytes.Buffer, relID, name string, id int) {
	fmt.Fprintf(b, `<w:p><w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/><wp:docPr id="%d" name="%s"/>`+
		`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">`+
		`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		imageBoxCx, imageBoxCy, id, xmlEscape(name), id, xmlEscape(name), relID, imageBoxCx, imageBoxCy)
}

// packDocx assembles the OOXML zip container around the main document part.
func packDocx(documentXML []byte, media []mediaPart) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("docx part %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("docx part %s: %w", name, err)
		}
		return nil
	}

	var types bytes.Buffer
	types.WriteString(xml.Header)
	types.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Default Extension="jpg" ContentType="image/jpeg"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`)
	if err := write("[Content_Types].xml", types.Bytes()); err != nil {
		return nil, err
	}

	var rootRels bytes.Buffer
	rootRels.WriteString(xml.Header)
	rootRels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`)
	if err := write("_rels/.rels", rootRels.Bytes()); err != nil {
		return nil, err
	}

	var docRels bytes.Buffer
	docRels.WriteString(xml.Header)
	docRels.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, m := range media {
		fmt.Fprintf(&docRels,
			`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`,
			m.relID, xmlEscape(m.filename))
	}
	docRels.WriteString(`</Relationships>`)
	if err := write("word/_rels/document.xml.rels", docRels.Bytes()); err != nil {
		return nil, err
	}

	if err := write("word/document.xml", documentXML); err != nil {
		return nil, err
	}
	for _, m := range media {
		if err := write("word/media/"+m.filename, m.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx container: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
