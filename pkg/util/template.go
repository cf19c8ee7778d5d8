package util

import (
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeName turns an arbitrary channel or file label into something safe
// to use as a path component.
//
// Example:
//
//	SanitizeName("general chat!")  // "general-chat"
//	SanitizeName("  ")             // "untitled"
func SanitizeName(value string) string {
	cleaned := unsafeName.ReplaceAllString(strings.TrimSpace(value), "-")
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// ExpandTpl replaces {placeholder} tokens in tpl with the given values.
// Unknown placeholders are left untouched so a bad template still produces
// a stable, inspectable path instead of an empty one.
func ExpandTpl(tpl string, values map[string]string) string {
	out := tpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// TrimSeparators removes dangling '-' and '_' runs that placeholder expansion
// can leave behind, e.g. "2024-01-" -> "2024-01".
func TrimSeparators(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-_")
}
