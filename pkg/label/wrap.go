package label

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Line limits, in runes, used by Wrap.
const (
	NarrowColumns = 9
	WideColumns   = 7
)

// charWidths holds approximate advance widths, in em, of Latin glyphs that
// differ noticeably from 1em.
var charWidths = map[rune]float64{
	'i': 0.4, 'j': 0.4, 'l': 0.4, 't': 0.5, 'f': 0.5, 'r': 0.6,
	'I': 0.3, '1': 0.6, '!': 0.3, '|': 0.3, '.': 0.3, ',': 0.3,
	':': 0.3, ';': 0.4, 'w': 1.4, 'W': 1.6, 'm': 1.3, 'M': 1.5,
	'@': 1.4, 'a': 0.9, 'e': 0.9, 'o': 0.9, 'u': 0.9, 'n': 0.9,
	's': 0.8, 'A': 1.1, 'E': 1.0, 'O': 1.2, 'U': 1.1, 'N': 1.1,
	'S': 1.0,
}

// Wrap splits text into label lines. Explicit newlines always break; within
// a line, words separated by spaces or commas are packed greedily into
// NarrowColumns runes, or WideColumns when the text contains East Asian
// wide characters. Empty lines are dropped.
func Wrap(text string) []string {
	limit := NarrowColumns
	if hasWide(text) {
		limit = WideColumns
	}

	var out []string
	for _, forced := range strings.Split(text, "\n") {
		var cur []string
		count := 0
		flush := func() {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, " "))
			}
			cur, count = nil, 0
		}
		for _, word := range strings.FieldsFunc(forced, func(r rune) bool { return r == ' ' || r == ',' }) {
			n := utf8.RuneCountInString(word)
			if n+count > limit {
				flush()
			}
			if w := strings.TrimSpace(word); w != "" {
				cur = append(cur, w)
			}
			count += n
		}
		flush()
	}
	return out
}

// TextWidth estimates the width of line in em. Narrow-script lines use
// per-glyph widths; wide lines count one em per rune.
func TextWidth(line string) float64 {
	line = strings.TrimSpace(line)
	if hasWide(line) {
		return float64(utf8.RuneCountInString(line))
	}
	var w float64
	for _, r := range line {
		if cw, ok := charWidths[r]; ok {
			w += cw
		} else {
			w++
		}
	}
	return w
}

// MaxWidth returns the widest TextWidth among lines.
func MaxWidth(lines []string) float64 {
	var w float64
	for _, l := range lines {
		w = max(w, TextWidth(l))
	}
	return w
}

func hasWide(s string) bool {
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			return true
		}
	}
	return false
}
