package docpipe

import (
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// TextQuality captures per-page metrics about extracted text. Scanned pages
// (no usable text layer, image-backed content) are surfaced to callers so
// they can route the page to OCR instead of trusting an empty extraction.
type TextQuality struct {
	Chars          int     `json:"chars"`
	PrintableRatio float64 `json:"printable_ratio"`
	WordlikeRatio  float64 `json:"wordlike_ratio"`
	HasImages      bool    `json:"has_images"`
}

// NeedsOCR reports whether the page likely requires OCR.
func (q *TextQuality) NeedsOCR() bool {
	return (q.Chars < 50 && q.HasImages) || q.PrintableRatio < 0.85
}

// scoreText computes extraction-quality metrics for one page.
func (d *Document) scoreText(pageNr int, text string) *TextQuality {
	return &TextQuality{
		Chars:          len([]rune(text)),
		PrintableRatio: printableRatio(text),
		WordlikeRatio:  wordlikeRatio(text),
		HasImages:      len(pdfcpu.ImageObjNrs(d.pctx, pageNr)) > 0,
	}
}

// printableRatio returns the ratio of printable characters in text.
// Private Use Area glyphs, the replacement character and control bytes all
// indicate a broken or missing ToUnicode mapping.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio returns the ratio of word-like tokens (length 2-15) to
// total tokens.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		if n := len([]rune(f)); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
