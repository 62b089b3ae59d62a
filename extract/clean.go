package extract

import (
	"strings"
	"unicode"
)

// zero-width and BOM code points stripped from extracted text
var zeroWidth = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // byte order mark
}

// CleanText normalizes extracted text: newlines are unified to \n,
// zero-width characters are stripped, runs of spaces and tabs collapse to
// a single space, and leading/trailing whitespace is trimmed. Blank-line
// structure is preserved so paragraph boundaries survive cleaning.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if zeroWidth[r] {
			continue
		}
		if r == '\n' {
			b.WriteRune('\n')
			prevSpace = false
			continue
		}
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
