package client

import (
	"sort"
	"strings"

	"mark-engine/api/internal/marking/normalize"
	"mark-engine/api/internal/marking/types"
)

// spotPatterns builds the canonical patterns from a label -> category(ies) mapping.
// A grouped mapping, including a mixed one whose string values were promoted
// to lists, is always categorised: patterns read "label [cat1, cat2]". A flat
// mapping is categorised only when no value equals its key; otherwise the raw
// value is the pattern.
func spotPatterns(mc types.MarkingContext) ([]string, error) {
	switch v := mc.CorrectAnswer.(type) {
	case types.GroupedMapping:
		out := make([]string, 0, len(v))
		for _, label := range types.OrderedKeys(v) {
			out = append(out, categorised(label, v[label]))
		}
		return out, nil
	case types.Mapping:
		labels := types.OrderedKeys(v)
		isCategorised := true
		for _, label := range labels {
			if v[label] == label {
				isCategorised = false
				break
			}
		}
		out := make([]string, 0, len(v))
		for _, label := range labels {
			if isCategorised {
				out = append(out, categorised(label, []string{v[label]}))
			} else {
				out = append(out, v[label])
			}
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, types.Malformed(mc.QuestionType, "correctAnswer", "mapping", mc.CorrectAnswer)
	}
}

func categorised(label string, cats []string) string {
	sorted := append([]string(nil), cats...)
	sort.Strings(sorted)
	return label + " [" + strings.Join(sorted, ", ") + "]"
}

// gradeSpot credits each canonical pattern at most once, then subtracts the
// surplus of submissions over markMax. Repeated correct tokens are dropped
// before the surplus is taken; repeated wrong tokens still count against it.
func gradeSpot(g *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asList(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	patterns, err := spotPatterns(mc)
	if err != nil {
		return types.MarkingResult{}, err
	}

	credited := make([]bool, len(patterns))
	seen := make(map[string]struct{}, len(user))
	pairs := make([]types.AnswerPair, 0, len(user)+len(patterns))
	unique, submitted := 0, 0

	for _, token := range user {
		key := normalize.Key(token)
		if _, dup := seen[key]; dup || g.matchesCredited(token, patterns, credited) {
			pairs = append(pairs, types.AnswerPair{UserAnswer: token})
			continue
		}
		submitted++

		matched := -1
		for i, p := range patterns {
			if !credited[i] && g.match.Matches(token, p) {
				matched = i
				break
			}
		}
		if matched < 0 {
			pairs = append(pairs, types.AnswerPair{UserAnswer: token})
			continue
		}
		seen[key] = struct{}{}
		credited[matched] = true
		unique++
		pairs = append(pairs, types.AnswerPair{CorrectAnswer: patterns[matched], UserAnswer: token, IsCorrect: true})
	}

	for i, p := range patterns {
		if !credited[i] {
			pairs = append(pairs, types.AnswerPair{CorrectAnswer: p})
		}
	}

	surplus := submitted - mc.MarkMax
	if surplus < 0 {
		surplus = 0
	}
	return pairsResult(pairs, types.ClampMark(float64(unique-surplus), mc.MarkMax)), nil
}

// matchesCredited reports whether token repeats a pattern that already earned its mark.
func (g *Grader) matchesCredited(token string, patterns []string, credited []bool) bool {
	for i, p := range patterns {
		if credited[i] && g.match.Matches(token, p) {
			return true
		}
	}
	return false
}
