// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: all truncation here counts runes or display cells, never bytes,
// so multi-byte characters are not split.

// TruncateRunes shortens s to at most maxRunes runes. When s is cut, the
// last three runes of the budget are replaced by "...".
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// PrefixRunes keeps the first n runes of s and appends suffix only when
// something was cut. Unlike TruncateRunes the suffix does not count toward n.
func PrefixRunes(s string, n int, suffix string) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + suffix
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return len([]rune(s))
}

// TruncateWidth shortens s to fit maxWidth terminal cells, accounting for
// wide (CJK, emoji) characters.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// WrapWidth word-wraps s into lines no wider than width cells. Existing line
// breaks are preserved and words longer than width are hard split.
func WrapWidth(s string, width int) []string {
	if width <= 0 {
		return strings.Split(s, "\n")
	}

	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		var line strings.Builder
		lineWidth := 0
		flush := func() {
			out = append(out, line.String())
			line.Reset()
			lineWidth = 0
		}

		for _, w := range words {
			ww := runewidth.StringWidth(w)
			for ww > width {
				if lineWidth > 0 {
					flush()
				}
				head := runewidth.Truncate(w, width, "")
				if head == "" {
					// a single rune wider than the column
					head = string([]rune(w)[:1])
				}
				out = append(out, head)
				w = strings.TrimPrefix(w, head)
				ww = runewidth.StringWidth(w)
			}
			if ww == 0 {
				continue
			}
			if lineWidth > 0 && lineWidth+1+ww > width {
				flush()
			}
			if lineWidth > 0 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(w)
			lineWidth += ww
		}
		if lineWidth > 0 {
			flush()
		}
	}
	return out
}
