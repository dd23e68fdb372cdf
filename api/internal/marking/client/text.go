package client

import (
	"strings"

	"mark-engine/api/internal/marking/normalize"
	"mark-engine/api/internal/marking/types"
)

// gradeGaps pairs userAnswer[i] with the i-th correct value.
func gradeGaps(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asOrdered(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct, err := asOrdered(mc, "correctAnswer", mc.CorrectAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}

	pairs := make([]types.AnswerPair, 0, len(correct))
	for i, c := range correct {
		var u string
		if i < len(user) {
			u = user[i]
		}
		pairs = append(pairs, types.AnswerPair{
			CorrectAnswer: c,
			UserAnswer:    u,
			IsCorrect:     normalize.EqualFold(u, c),
		})
	}
	return pairsResult(pairs, float64(countCorrect(pairs))), nil
}

// gradeFixSentence is all-or-nothing on the normalised sentence.
func gradeFixSentence(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asText(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct, err := asText(mc, "correctAnswer", mc.CorrectAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}

	ok := normalize.Equal(user, correct)
	pairs := []types.AnswerPair{{CorrectAnswer: correct, UserAnswer: user, IsCorrect: ok}}
	return types.MarkingResult{
		AnnotatedAnswer: types.AnnotatedText(correct),
		MarkingTable:    MarkingTable(pairs),
		UserMark:        binary(ok, mc.MarkMax),
	}, nil
}

// gradeNumber joins the submitted digits and compares the string exactly.
func gradeNumber(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	var user string
	switch v := mc.UserAnswer.(type) {
	case types.List:
		user = strings.Join(v, "")
	case types.Text:
		user = string(v)
	case nil:
	default:
		return types.MarkingResult{}, types.Malformed(mc.QuestionType, "userAnswer", "list of digits", mc.UserAnswer)
	}
	var correct string
	switch v := mc.CorrectAnswer.(type) {
	case types.Text:
		correct = string(v)
	case types.List:
		correct = strings.Join(v, "")
	case nil:
	default:
		return types.MarkingResult{}, types.Malformed(mc.QuestionType, "correctAnswer", "digit string", mc.CorrectAnswer)
	}

	ok := user != "" && user == correct
	pairs := []types.AnswerPair{{CorrectAnswer: correct, UserAnswer: user, IsCorrect: ok}}
	return types.MarkingResult{
		AnnotatedAnswer: types.AnnotatedText(correct),
		MarkingTable:    MarkingTable(pairs),
		UserMark:        binary(ok, mc.MarkMax),
	}, nil
}
