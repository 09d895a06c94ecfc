package guard

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is a file format detected from magic bytes.
type FileType string

const (
	TypeUnknown FileType = ""
	TypePDF     FileType = "pdf"
	TypePNG     FileType = "png"
	TypeJPEG    FileType = "jpeg"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// jpegMarkers are the bytes accepted after the FF D8 start-of-image marker.
// Covers JFIF (E0), EXIF (E1), SPIFF (E8), quantization-first (DB) and
// Adobe (EE) variants.
var jpegMarkers = []byte{0xE0, 0xE1, 0xE8, 0xDB, 0xEE}

// DetectSignature returns the true format of data based on leading magic
// bytes, independent of any declared metadata.
func DetectSignature(data []byte) FileType {
	switch {
	case len(data) >= 5 && bytes.HasPrefix(data, []byte("%PDF-")):
		return TypePDF
	case len(data) >= 8 && bytes.HasPrefix(data, pngSignature):
		return TypePNG
	case isJPEG(data):
		return TypeJPEG
	default:
		return TypeUnknown
	}
}

func isJPEG(data []byte) bool {
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF {
		return false
	}
	if len(data) < 4 {
		return false
	}
	return bytes.IndexByte(jpegMarkers, data[3]) >= 0
}

// mimeTypes maps a detected format to the MIME types accepted for it.
var mimeTypes = map[FileType][]string{
	TypePDF:  {"application/pdf"},
	TypePNG:  {"image/png"},
	TypeJPEG: {"image/jpeg", "image/jpg"},
}

// extensions maps a detected format to the file extensions accepted for it.
var extensions = map[FileType][]string{
	TypePDF:  {".pdf"},
	TypePNG:  {".png"},
	TypeJPEG: {".jpg", ".jpeg"},
}

// CrossValidateFormat verifies that the byte signature of data agrees with
// both the declared MIME type and the filename extension. Declared metadata
// is never trusted alone: a mismatch on either axis is rejected.
//
// Empty declaredType or filename skips that axis (the caller may not have
// transport metadata, e.g. in CLI use).
func CrossValidateFormat(data []byte, declaredType, filename string) (FileType, error) {
	detected := DetectSignature(data)
	if detected == TypeUnknown {
		return TypeUnknown, fmt.Errorf("%w: unrecognized file signature", ErrFileTypeMismatch)
	}

	if declaredType != "" {
		declared := strings.ToLower(strings.TrimSpace(strings.Split(declaredType, ";")[0]))
		if !contains(mimeTypes[detected], declared) {
			return detected, fmt.Errorf("%w: signature %s, declared %q", ErrFileTypeMismatch, detected, declaredType)
		}
	}

	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if ext != "" && !contains(extensions[detected], ext) {
			return detected, fmt.Errorf("%w: signature %s, extension %q", ErrFileTypeMismatch, detected, ext)
		}
	}

	return detected, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
