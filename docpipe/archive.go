package docpipe

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
)

// newArchiveWriter returns a zip writer with compression fixed at maximum.
// Entries are appended and flushed one at a time so peak memory stays
// bounded on multi-page inputs; nothing is buffered wholesale.
func newArchiveWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return zw
}

func writeArchiveEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return zw.Flush()
}

// packageConvertedPages streams rendered pages as page-{N}.{ext} entries.
// The caller guarantees ascending page order.
func packageConvertedPages(zw *zip.Writer, page ConvertedPage) error {
	return writeArchiveEntry(zw, page.Filename, page.Data)
}

// packageExtractedContent streams one page's recovered content: a
// page-{N}.txt entry always, and a page-{N}-images/ group only when the
// page yielded at least one image.
func packageExtractedContent(zw *zip.Writer, content ExtractedPageContent) error {
	txtName := fmt.Sprintf("page-%d.txt", content.PageNumber)
	if err := writeArchiveEntry(zw, txtName, []byte(content.Text)); err != nil {
		return err
	}
	for _, img := range content.Images {
		name := fmt.Sprintf("page-%d-images/%s", content.PageNumber, img.Filename)
		if err := writeArchiveEntry(zw, name, img.Data); err != nil {
			return err
		}
	}
	return nil
}
