package graph

import (
	"strings"
	"unicode"
)

// normalizeTag lowercases a type tag and collapses spaces and hyphens to underscores.
func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
}

// Tokens splits text into lowercase alphanumeric words, deduplicated, in
// first-seen order.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// SignificantWords returns the label words longer than three characters.
// These drive label-overlap similarity, clique coherence and clustering.
func SignificantWords(label string) []string {
	var out []string
	for _, w := range Tokens(label) {
		if len([]rune(w)) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// ShareSignificantWord reports whether two labels have a word longer than
// three characters in common.
func ShareSignificantWord(a, b string) bool {
	wa := SignificantWords(a)
	if len(wa) == 0 {
		return false
	}
	set := make(map[string]bool, len(wa))
	for _, w := range wa {
		set[w] = true
	}
	for _, w := range SignificantWords(b) {
		if set[w] {
			return true
		}
	}
	return false
}
