package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fold returns the comparison form of a surface text. Surface texts are matched
// case-insensitively, so "Insulin" and "insulin" fold to the same value. Runs of
// whitespace collapse to a single space and the bytes are normalised to NFKC.
func Fold(surface string) string {
	surface = norm.NFKC.String(surface)
	surface = strings.ToLower(surface)
	return strings.Join(strings.Fields(surface), " ")
}

// SameSurface returns true if a and b are lexically the same surface text.
func SameSurface(a, b string) bool {
	return Fold(a) == Fold(b)
}
