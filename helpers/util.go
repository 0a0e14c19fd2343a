package helpers

import "strings"

// CollapseWhitespace trims a string and collapses internal whitespace runs
// into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateRunes cuts a string to at most n runes without splitting one.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
