// Package matcher decides whether a student token satisfies a canonical spot pattern.
package matcher

import (
	"strings"

	"mark-engine/api/internal/marking/normalize"
)

// AnswerMatcher is the predicate the spot grader depends on.
// Patterns may carry a bracketed category suffix: "label [cat1, cat2]".
type AnswerMatcher interface {
	Matches(candidate, pattern string) bool
}

// Func adapts a plain function to AnswerMatcher.
type Func func(candidate, pattern string) bool

func (f Func) Matches(candidate, pattern string) bool { return f(candidate, pattern) }

// Default compares labels case-insensitively after normalisation. When the
// candidate carries its own categories they must equal the pattern's.
type Default struct{}

func (Default) Matches(candidate, pattern string) bool {
	cLabel, cCats, cHas := Split(candidate)
	pLabel, pCats, pHas := Split(pattern)
	if cLabel == "" || !normalize.EqualFold(cLabel, pLabel) {
		return false
	}
	if !cHas {
		return true
	}
	if !pHas || len(cCats) != len(pCats) {
		return false
	}
	want := make(map[string]struct{}, len(pCats))
	for _, c := range pCats {
		want[normalize.Key(c)] = struct{}{}
	}
	for _, c := range cCats {
		if _, ok := want[normalize.Key(c)]; !ok {
			return false
		}
	}
	return true
}

// Split separates "label [a, b]" into its label and categories.
func Split(s string) (label string, cats []string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "]") {
		return s, nil, false
	}
	open := strings.LastIndex(s, " [")
	if open < 0 {
		return s, nil, false
	}
	inner := s[open+2 : len(s)-1]
	for _, c := range strings.Split(inner, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return strings.TrimSpace(s[:open]), cats, true
}
