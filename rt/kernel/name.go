package kernel

import (
	"strings"
	"unicode/utf8"
)

// normalizeName trims whitespace and cuts the name to MaxTaskNameLen bytes without splitting a rune.
// Names are display-only; empty and duplicate names are allowed.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) <= MaxTaskNameLen {
		return name
	}
	n := MaxTaskNameLen
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}
