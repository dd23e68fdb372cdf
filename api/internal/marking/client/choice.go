package client

import (
	"strconv"
	"strings"

	"mark-engine/api/internal/marking/types"
)

// resolveOption maps an index-valued correct answer onto option text. An index
// that is not valid for options is kept as literal text.
func resolveOption(correct string, options []string) string {
	idx, err := strconv.Atoi(strings.TrimSpace(correct))
	if err != nil || idx < 0 || idx >= len(options) {
		return correct
	}
	return options[idx]
}

// gradeChoice covers mcq (case-sensitive) and true_false (case-insensitive).
func gradeChoice(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asText(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct, err := asText(mc, "correctAnswer", mc.CorrectAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct = resolveOption(correct, mc.Options)

	var ok bool
	if mc.QuestionType == types.TrueFalse {
		ok = strings.EqualFold(strings.TrimSpace(user), strings.TrimSpace(correct))
	} else {
		ok = user == correct
	}

	pairs := []types.AnswerPair{{CorrectAnswer: correct, UserAnswer: user, IsCorrect: ok}}
	return types.MarkingResult{
		AnnotatedAnswer: types.AnnotatedText(correct),
		MarkingTable:    MarkingTable(pairs),
		UserMark:        binary(ok, mc.MarkMax),
	}, nil
}

// gradeMultiple awards one mark per selected correct value and takes one back
// for every selection outside the correct set, never going below zero.
func gradeMultiple(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asList(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct, err := asOrdered(mc, "correctAnswer", mc.CorrectAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}

	selected := make(map[string]struct{}, len(user))
	for _, u := range user {
		selected[u] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		wanted[c] = struct{}{}
	}

	pairs := make([]types.AnswerPair, 0, len(correct)+len(user))
	hits := 0
	for _, c := range correct {
		_, hit := selected[c]
		p := types.AnswerPair{CorrectAnswer: c, IsCorrect: hit}
		if hit {
			p.UserAnswer = c
			hits++
		}
		pairs = append(pairs, p)
	}
	surplus := 0
	for _, u := range user {
		if _, ok := wanted[u]; !ok {
			surplus++
			pairs = append(pairs, types.AnswerPair{UserAnswer: u})
		}
	}

	mark := hits - surplus
	if mark < 0 {
		mark = 0
	}
	return pairsResult(pairs, float64(mark)), nil
}
