// Package textutils provides text normalization shared by category matching
// and storage.
package textutils

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var spaces = regexp.MustCompile(`\s+`)

// CollapseSpaces trims s and replaces every run of whitespace with one space.
func CollapseSpaces(s string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Fold returns the case-folded form of s used for case-insensitive
// comparison in any script. A Caser is not safe for concurrent use, so one is
// built per call.
func Fold(s string) string {
	return cases.Fold().String(CollapseSpaces(s))
}

// EqualFold reports whether a and b are equal after folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
