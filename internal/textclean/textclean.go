// Package textclean normalizes place names before they reach the index.
package textclean

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripControl drops control runes other than whitespace, which Clean
// collapses instead.
var stripControl = transform.Chain(norm.NFC, runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && !unicode.IsSpace(r)
})))

// Clean strips surrounding punctuation and whitespace and collapses internal
// whitespace runs into a single space. Interior punctuation ("St. John's")
// is preserved.
func Clean(s string) string {
	out, _, err := transform.String(stripControl, s)
	if err != nil {
		out = s
	}
	out = strings.TrimFunc(out, isEdge)
	return strings.Join(strings.Fields(out), " ")
}

// Fold returns a case-folded form of an already cleaned name, suitable as a
// lookup key.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func isEdge(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
