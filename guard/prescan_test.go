package guard

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestPrecheckComplexityMarkers(t *testing.T) {
	// WHAT: a buffer with 150 page markers against a ceiling of 100 is
	// rejected before any full parse is attempted.
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n", i+3)
	}

	err := PrecheckComplexity(b.Bytes(), 100)
	if !errors.Is(err, ErrPageLimitExceeded) {
		t.Fatalf("expected ErrPageLimitExceeded, got %v", err)
	}

	if err := PrecheckComplexity(b.Bytes(), 150); err != nil {
		t.Fatalf("150 pages against ceiling 150: %v", err)
	}
}

func TestPrecheckComplexityCountField(t *testing.T) {
	// The declared /Count on a /Type /Pages node wins when larger than the
	// marker tally (pages may live beyond the scanned window).
	data := []byte("%PDF-1.4\n2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 500 >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n")

	err := PrecheckComplexity(data, 100)
	if !errors.Is(err, ErrPageLimitExceeded) {
		t.Fatalf("expected ErrPageLimitExceeded from /Count, got %v", err)
	}
}

func TestPrecheckComplexityPagesNodeNotCounted(t *testing.T) {
	// /Type /Pages must not be tallied as a page marker.
	data := []byte("<< /Type /Pages /Count 1 >>\n<< /Type /Page >>\n")
	if err := PrecheckComplexity(data, 1); err != nil {
		t.Fatalf("single page with pages node: %v", err)
	}
}

func TestPrecheckComplexityScansHeadOnly(t *testing.T) {
	// Markers beyond the 1 MiB window are invisible to the heuristic.
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.Write(bytes.Repeat([]byte{' '}, prescanWindow))
	for i := 0; i < 500; i++ {
		b.WriteString("<< /Type /Page >>\n")
	}
	if err := PrecheckComplexity(b.Bytes(), 10); err != nil {
		t.Fatalf("markers past window should be ignored: %v", err)
	}
}
