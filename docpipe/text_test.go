package docpipe

import "testing"

// WHAT: fragments within the vertical threshold join into one line,
// fragments beyond it split.
// WHY: the 5-unit threshold is what separates baseline jitter (kerned runs,
// superscripts) from a genuine line advance.
func TestAssembleTextLineBreaks(t *testing.T) {
	tests := []struct {
		name   string
		instrs []instruction
		want   string
	}{
		{
			name: "small jitter stays on one line",
			instrs: []instruction{
				{kind: instrText, text: "Total: ", y: 100.0},
				{kind: instrText, text: "42", y: 100.2},
			},
			want: "Total: 42",
		},
		{
			name: "line advance splits",
			instrs: []instruction{
				{kind: instrText, text: "first", y: 120},
				{kind: instrText, text: "second", y: 100},
			},
			want: "first\nsecond",
		},
		{
			name: "threshold is exclusive",
			instrs: []instruction{
				{kind: instrText, text: "a", y: 100},
				{kind: instrText, text: "b", y: 95}, // exactly 5 apart: same line
				{kind: instrText, text: "c", y: 89.9},
			},
			want: "ab\nc",
		},
		{
			name: "upward movement also splits",
			instrs: []instruction{
				{kind: instrText, text: "footnote", y: 40},
				{kind: instrText, text: "header", y: 750},
			},
			want: "footnote\nheader",
		},
		{
			name: "image instructions are transparent to text",
			instrs: []instruction{
				{kind: instrText, text: "before", y: 100},
				{kind: instrImage, name: "Im0"},
				{kind: instrText, text: " after", y: 100},
			},
			want: "before after",
		},
		{
			name:   "no text",
			instrs: []instruction{{kind: instrImage, name: "Im0"}},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assembleText(tt.instrs); got != tt.want {
				t.Errorf("assembleText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// WHAT: control bytes are dropped and embedded whitespace collapses to
// spaces before line assembly.
func TestSanitizeFragment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"tab\tand\nnewline", "tab and newline"},
		{"nul\x00byte\x07bell", "nulbytebell"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeFragment(tt.in); got != tt.want {
			t.Errorf("sanitizeFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
