package cliutil

import (
	"strings"
)

// Wrap word-wraps the string `s` to a maximum width `w`.  Pass `w` == 0 to do
// no wrapping.
//
// In order to have some room for slop to avoid things like a short word being
// on a line by itself, lines are actually wrapped to `w - 5`.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// WrapIndent is like Wrap, but prefixes every line after the first with `i`
// spaces of indent (the first line's indent is assumed to have already been
// written by the caller).
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

func wrap(indent, width int, s string) string {
	if width == 0 {
		return s
	}
	limit := width - 5
	if limit <= indent {
		return s
	}
	avail := limit - indent

	pad := strings.Repeat(" ", indent)
	var ret strings.Builder
	firstLine := true
	for _, line := range strings.Split(s, "\n") {
		for {
			if !firstLine {
				ret.WriteString("\n")
				ret.WriteString(pad)
			}
			firstLine = false
			if len(line) <= avail {
				ret.WriteString(line)
				break
			}
			cut := strings.LastIndex(line[:avail+1], " ")
			if cut <= 0 {
				// a single over-long word; cut at the next
				// opportunity rather than mid-word
				cut = strings.Index(line, " ")
				if cut < 0 {
					ret.WriteString(line)
					break
				}
			}
			ret.WriteString(line[:cut])
			line = strings.TrimLeft(line[cut:], " ")
		}
	}
	return ret.String()
}
