package docpipe

import (
	"math"
	"strings"
)

// lineBreakThreshold is the vertical distance, in content units, between
// consecutive text fragments beyond which they are treated as separate
// lines. Fragments closer than this share a baseline (superscripts, kerned
// runs) and are concatenated with no separator.
//
// The value is empirical: typical body text advances 10-14 units per line,
// while baseline jitter within a line stays well under 5.
const lineBreakThreshold = 5.0

// extractText recovers the page's text, approximating visual line structure
// from the flat positional stream. This is not layout reconstruction: only
// the baseline Y of each fragment is considered.
func extractText(p *Page) (string, error) {
	instrs, err := p.instructions()
	if err != nil {
		return "", err
	}
	return assembleText(instrs), nil
}

// assembleText joins positioned fragments into lines: a vertical jump beyond
// the threshold starts a new line, anything closer continues the current one.
func assembleText(instrs []instruction) string {
	var (
		sb    strings.Builder
		prevY float64
		first = true
	)
	for _, in := range instrs {
		if in.kind != instrText {
			continue
		}
		frag := sanitizeFragment(in.text)
		if frag == "" {
			continue
		}
		if !first && math.Abs(in.y-prevY) > lineBreakThreshold {
			sb.WriteByte('\n')
		}
		sb.WriteString(frag)
		prevY = in.y
		first = false
	}
	return sb.String()
}

// sanitizeFragment drops control bytes that would corrupt text output;
// embedded newlines inside a fragment carry no positional meaning and are
// treated as spaces.
func sanitizeFragment(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			sb.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			// skip
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
