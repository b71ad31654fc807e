// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"sort"
	"strings"
)

// validCommands lists every command name and alias, sorted so suggestions
// are deterministic when two candidates tie.
var validCommands = func() []string {
	names := make([]string, 0, len(commandAliases))
	for name := range commandAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// SuggestCommand returns the valid command closest to input, or "" when
// nothing is close enough.
func SuggestCommand(input string) string {
	return suggestFrom(strings.ToLower(input), validCommands)
}

// suggestFrom picks the closest candidate by edit distance. Short inputs
// allow one edit, medium ones two and long ones three.
func suggestFrom(input string, candidates []string) string {
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	best, bestDistance := "", -1
	for _, c := range candidates {
		d := levenshteinDistance(input, c)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance) {
			best, bestDistance = c, d
		}
	}
	return best
}

// levenshteinDistance is the number of single-character edits between s1
// and s2.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// two rows instead of the full matrix
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
