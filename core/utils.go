package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// StripSpaces removes all whitespace in `s` and lowers it.
func StripSpaces(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
