// Package motd cleans in-band decoration codes from server display text.
package motd

import "strings"

// ControlRune introduces a decoration: the control rune followed by one
// selector character switches color or text style.
const ControlRune = '§'

// selectors is the alphabet of valid decoration selectors: hexadecimal
// colors plus the k to o styles and the r reset, case-insensitive.
const selectors = "0123456789abcdefklmnor"

// Strip removes every decoration pair from s. A dangling control rune or
// one followed by an unknown selector is preserved verbatim.
func Strip(s string) string {
	if !strings.ContainsRune(s, ControlRune) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == ControlRune && i+1 < len(runes) && isSelector(runes[i+1]) {
			i++ // swallow the selector too
			continue
		}
		b.WriteRune(runes[i])
	}

	return b.String()
}

// StripAll returns a copy of lines with decorations removed from each one.
func StripAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Strip(line)
	}

	return out
}

func isSelector(r rune) bool {
	if 'A' <= r && r <= 'Z' {
		r += 'a' - 'A'
	}

	return strings.ContainsRune(selectors, r)
}
