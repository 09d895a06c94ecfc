package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// instrKind enumerates the content-stream instructions the pipeline acts on.
// Everything else in a page description (vector paint, state changes that do
// not affect the text baseline) is consumed and dropped.
type instrKind int

const (
	// instrText is a positioned text fragment: string plus baseline Y.
	instrText instrKind = iota
	// instrImage is a paint of an external image resource by name.
	instrImage
)

type instruction struct {
	kind instrKind
	text string  // instrText
	y    float64 // instrText, baseline in content units
	name string  // instrImage, resource name without the leading slash
}

// instructions walks the page's content stream and returns the ordered
// instruction sequence. Only the vertical text position is tracked; the
// extractor approximates line structure, it does not reconstruct layout.
func (p *Page) instructions() ([]instruction, error) {
	r, err := pdfcpu.ExtractPageContent(p.doc.pctx, p.nr)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", p.nr, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", p.nr, err)
	}
	return walkContent(data), nil
}

// textState carries the pieces of the PDF text state that determine the
// baseline Y: the text line matrix vertical offset and the leading.
type textState struct {
	y       float64
	lineY   float64
	leading float64
}

func (s *textState) begin() { s.y, s.lineY, s.leading = 0, 0, 0 }

func (s *textState) setMatrix(f float64) {
	s.lineY = f
	s.y = f
}
func (s *textState) translate(ty float64) {
	s.lineY += ty
	s.y = s.lineY
}
func (s *textState) nextLine() { s.translate(-s.leading) }

// walkContent tokenizes a decoded content stream and reduces it to the
// instruction sequence. Malformed trailing tokens terminate the walk rather
// than failing it; partial instruction lists are preferred for hostile input.
func walkContent(data []byte) []instruction {
	var (
		instrs []instruction
		st     textState
		stack  []operand
	)

	emitText := func(raw []byte) {
		if len(raw) == 0 {
			return
		}
		instrs = append(instrs, instruction{kind: instrText, text: string(raw), y: st.y})
	}

	lx := &lexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			stack = append(stack, tok.operand)
			continue
		}

		switch tok.op {
		case "BT":
			st.begin()
		case "Tm":
			if len(stack) >= 6 {
				st.setMatrix(stack[len(stack)-1].num)
			}
		case "Td":
			if len(stack) >= 2 {
				st.translate(stack[len(stack)-1].num)
			}
		case "TD":
			if len(stack) >= 2 {
				ty := stack[len(stack)-1].num
				st.leading = -ty
				st.translate(ty)
			}
		case "TL":
			if len(stack) >= 1 {
				st.leading = stack[len(stack)-1].num
			}
		case "T*":
			st.nextLine()
		case "Tj":
			if len(stack) >= 1 {
				emitText(stack[len(stack)-1].str)
			}
		case "'":
			st.nextLine()
			if len(stack) >= 1 {
				emitText(stack[len(stack)-1].str)
			}
		case "\"":
			st.nextLine()
			if len(stack) >= 1 {
				emitText(stack[len(stack)-1].str)
			}
		case "TJ":
			if len(stack) >= 1 && stack[len(stack)-1].kind == opArray {
				var frag []byte
				for _, el := range stack[len(stack)-1].arr {
					if el.kind == opString {
						frag = append(frag, el.str...)
					}
				}
				emitText(frag)
			}
		case "Do":
			if len(stack) >= 1 && stack[len(stack)-1].kind == opName {
				instrs = append(instrs, instruction{kind: instrImage, name: stack[len(stack)-1].name})
			}
		case "BI":
			// Inline image: opaque binary until EI. Skipped; only external
			// image resources are extracted.
			lx.skipInlineImage()
		}
		stack = stack[:0]
	}
	return instrs
}

// --- content stream lexer ---

type operandKind int

const (
	opNumber operandKind = iota
	opString
	opName
	opArray
	opMisc
)

type operand struct {
	kind operandKind
	num  float64
	str  []byte
	name string
	arr  []operand
}

type tokKind int

const (
	tokOperand tokKind = iota
	tokOperator
)

type token struct {
	kind    tokKind
	op      string
	operand operand
}

type lexer struct {
	data []byte
	pos  int
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWS(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func (l *lexer) skipWS() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWS(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next token, or ok=false at end of stream.
func (l *lexer) next() (token, bool) {
	l.skipWS()
	if l.pos >= len(l.data) {
		return token{}, false
	}

	switch b := l.data[l.pos]; {
	case b == '(':
		return token{kind: tokOperand, operand: operand{kind: opString, str: l.readLiteralString()}}, true

	case b == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.skipDict()
			return token{kind: tokOperand, operand: operand{kind: opMisc}}, true
		}
		return token{kind: tokOperand, operand: operand{kind: opString, str: l.readHexString()}}, true

	case b == '[':
		l.pos++
		return token{kind: tokOperand, operand: operand{kind: opArray, arr: l.readArray()}}, true

	case b == ']', b == '>', b == ')', b == '{', b == '}':
		// Stray delimiter; consume and keep walking.
		l.pos++
		return token{kind: tokOperand, operand: operand{kind: opMisc}}, true

	case b == '/':
		l.pos++
		return token{kind: tokOperand, operand: operand{kind: opName, name: l.readRegular()}}, true

	case b == '+', b == '-', b == '.', b >= '0' && b <= '9':
		raw := l.readRegular()
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return token{kind: tokOperand, operand: operand{kind: opMisc}}, true
		}
		return token{kind: tokOperand, operand: operand{kind: opNumber, num: n}}, true

	default:
		op := l.readRegular()
		if op == "" {
			l.pos++ // defensive progress on unexpected bytes
			return token{kind: tokOperand, operand: operand{kind: opMisc}}, true
		}
		switch op {
		case "true", "false", "null":
			return token{kind: tokOperand, operand: operand{kind: opMisc}}, true
		}
		return token{kind: tokOperator, op: op}, true
	}
}

// readRegular consumes a run of regular (non-delimiter, non-whitespace) bytes.
func (l *lexer) readRegular() string {
	start := l.pos
	for l.pos < len(l.data) && !isWS(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// readLiteralString decodes a (...) string with balanced parentheses,
// backslash escapes and octal codes.
func (l *lexer) readLiteralString() []byte {
	l.pos++ // consume '('
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		switch b {
		case '\\':
			l.pos++
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\n':
				// line continuation
			case '\r':
				if l.pos+1 < len(l.data) && l.data[l.pos+1] == '\n' {
					l.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && l.pos+1 < len(l.data); k++ {
						nb := l.data[l.pos+1]
						if nb < '0' || nb > '7' {
							break
						}
						val = val*8 + int(nb-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			l.pos++
		case '(':
			depth++
			out = append(out, b)
			l.pos++
		case ')':
			depth--
			l.pos++
			if depth == 0 {
				return out
			}
			out = append(out, b)
		default:
			out = append(out, b)
			l.pos++
		}
	}
	return out
}

// readHexString decodes a <...> hex string; an odd trailing digit is padded
// with zero per the PDF convention.
func (l *lexer) readHexString() []byte {
	l.pos++ // consume '<'
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		b := l.data[l.pos]
		if (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') {
			digits = append(digits, b)
		}
		l.pos++
	}
	if l.pos < len(l.data) {
		l.pos++ // consume '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := 0; i < len(out); i++ {
		hi := hexVal(digits[2*i])
		lo := hexVal(digits[2*i+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

// readArray collects operands until the matching ']'.
func (l *lexer) readArray() []operand {
	var out []operand
	for {
		l.skipWS()
		if l.pos >= len(l.data) {
			return out
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return out
		}
		tok, ok := l.next()
		if !ok {
			return out
		}
		if tok.kind == tokOperand {
			out = append(out, tok.operand)
		}
		// Operators inside arrays are malformed; dropped.
	}
}

// skipDict consumes a balanced << ... >> dictionary, respecting strings.
func (l *lexer) skipDict() {
	depth := 0
	for l.pos < len(l.data) {
		switch {
		case bytes.HasPrefix(l.data[l.pos:], []byte("<<")):
			depth++
			l.pos += 2
		case bytes.HasPrefix(l.data[l.pos:], []byte(">>")):
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
		case l.data[l.pos] == '(':
			l.readLiteralString()
		case l.data[l.pos] == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
		default:
			l.pos++
		}
	}
}

// skipInlineImage advances past BI ... ID <binary> EI. The EI marker must be
// delimited by whitespace to avoid false positives inside sample data.
func (l *lexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += idx + 2
	for {
		rel := bytes.Index(l.data[l.pos:], []byte("EI"))
		if rel < 0 {
			l.pos = len(l.data)
			return
		}
		abs := l.pos + rel
		before := abs == 0 || isWS(l.data[abs-1])
		after := abs+2 >= len(l.data) || isWS(l.data[abs+2]) || isDelim(l.data[abs+2])
		l.pos = abs + 2
		if before && after {
			return
		}
	}
}
