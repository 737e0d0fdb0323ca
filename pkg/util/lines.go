package util

import "strings"

// SplitLines splits s at every line boundary: \n, \r, \r\n, \v, \f, the file,
// group and record separators, NEL, and the Unicode line and paragraph
// separators. A trailing boundary does not produce a final empty line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	var (
		lines []string
		b     strings.Builder
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !isLineBoundary(r) {
			b.WriteRune(r)
			continue
		}
		if r == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
			i++
		}
		lines = append(lines, b.String())
		b.Reset()
	}
	if b.Len() > 0 {
		lines = append(lines, b.String())
	}
	return lines
}

func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
