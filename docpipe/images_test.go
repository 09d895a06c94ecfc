package docpipe

import (
	"bytes"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// WHAT: a resource whose raw stream already carries a JPEG start-of-image
// marker is returned byte-identical, tagged as JPEG.
// WHY: DCT-encoded images must never be decoded and re-encoded; the
// passthrough is the only lossless option.
func TestConvertResourceJPEGPassthrough(t *testing.T) {
	raw := jpegBytes(t, 16, 16)
	sd := types.StreamDict{Dict: types.Dict{}, Raw: raw}

	data, format, err := convertResourceToBuffer(&Document{}, sd)
	if err != nil {
		t.Fatalf("convertResourceToBuffer: %v", err)
	}
	if format != Jpeg {
		t.Errorf("format = %v, want %v", format, Jpeg)
	}
	if !bytes.Equal(data, raw) {
		t.Errorf("JPEG passthrough is not byte-identical")
	}
}

// WHAT: the passthrough triggers on the marker bytes alone, not on stream
// metadata.
func TestConvertResourcePassthroughNeedsMarker(t *testing.T) {
	// Raw bytes without FF D8 fall through to the decode path, which fails
	// here because the stream has no usable dictionary.
	sd := types.StreamDict{Dict: types.Dict{}, Raw: []byte{0x00, 0x01, 0x02}}
	if _, _, err := convertResourceToBuffer(&Document{}, sd); err == nil {
		t.Fatalf("expected failure for undecodable non-JPEG stream")
	}
}
