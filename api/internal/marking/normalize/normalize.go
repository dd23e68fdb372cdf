// Package normalize holds the string utilities shared by the graders.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var dashes = strings.NewReplacer(
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
)

// CollapseWhitespace trims and squeezes every whitespace run to one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// UnifyDashes rewrites dash-like runes to an ASCII hyphen.
func UnifyDashes(s string) string {
	return dashes.Replace(s)
}

// Text is the canonical form used for comparisons: NFC, unified dashes, collapsed whitespace.
// Case is preserved.
func Text(s string) string {
	return CollapseWhitespace(UnifyDashes(norm.NFC.String(s)))
}

// Equal compares the canonical forms case-sensitively.
func Equal(a, b string) bool {
	return Text(a) == Text(b)
}

// EqualFold compares the canonical forms ignoring case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(Text(a), Text(b))
}

// Key is a case-folded canonical form usable as a map key.
func Key(s string) string {
	return strings.ToLower(Text(s))
}
