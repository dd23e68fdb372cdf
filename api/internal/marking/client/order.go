package client

import (
	"encoding/json"
	"fmt"

	"mark-engine/api/internal/marking/types"
)

// gradeReorder counts positions where the submitted item equals the expected one.
func gradeReorder(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	user, err := asList(mc, "userAnswer", mc.UserAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}
	correct, err := asList(mc, "correctAnswer", mc.CorrectAnswer)
	if err != nil {
		return types.MarkingResult{}, err
	}

	pairs := make([]types.AnswerPair, 0, len(correct))
	for i, c := range correct {
		var u string
		if i < len(user) {
			u = user[i]
		}
		pairs = append(pairs, types.AnswerPair{CorrectAnswer: c, UserAnswer: u, IsCorrect: i < len(user) && u == c})
	}
	return pairsResult(pairs, float64(countCorrect(pairs))), nil
}

// gradeMatchPair always awards markMax: pairings are validated before submission.
// The table is informational only.
func gradeMatchPair(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	correct, _ := mc.CorrectAnswer.(types.Mapping)
	user, _ := mc.UserAnswer.(types.Mapping)

	pairs := make([]types.AnswerPair, 0, len(correct))
	for _, k := range types.OrderedKeys(correct) {
		u, answered := user[k]
		p := types.AnswerPair{CorrectAnswer: k + " → " + correct[k], IsCorrect: answered && u == correct[k]}
		if answered {
			p.UserAnswer = k + " → " + u
		}
		pairs = append(pairs, p)
	}
	return pairsResult(pairs, float64(mc.MarkMax)), nil
}

// groupKey parses correctAnswer, which may arrive as a JSON-encoded string.
func groupKey(mc types.MarkingContext) (types.GroupedMapping, error) {
	switch v := mc.CorrectAnswer.(type) {
	case types.GroupedMapping:
		return v, nil
	case types.Mapping:
		out := make(types.GroupedMapping, len(v))
		for k, item := range v {
			out[k] = []string{item}
		}
		return out, nil
	case types.Text:
		p, err := types.DecodePayload(json.RawMessage(v))
		if err != nil {
			return nil, fmt.Errorf("%w: group correctAnswer: %v", types.ErrMalformedContext, err)
		}
		if _, isText := p.(types.Text); isText {
			return nil, types.Malformed(mc.QuestionType, "correctAnswer", "grouped mapping", p)
		}
		return groupKey(types.MarkingContext{QuestionType: mc.QuestionType, CorrectAnswer: p})
	case nil:
		return types.GroupedMapping{}, nil
	default:
		return nil, types.Malformed(mc.QuestionType, "correctAnswer", "grouped mapping", mc.CorrectAnswer)
	}
}

// gradeGroup counts items the student placed in their correct category.
// Misplaced items are not counted and cost nothing; an item repeated within a
// category is credited once.
func gradeGroup(_ *Grader, mc types.MarkingContext) (types.MarkingResult, error) {
	var user types.GroupedMapping
	switch v := mc.UserAnswer.(type) {
	case types.GroupedMapping:
		user = v
	case nil:
	default:
		return types.MarkingResult{}, types.Malformed(mc.QuestionType, "userAnswer", "grouped mapping", mc.UserAnswer)
	}
	key, err := groupKey(mc)
	if err != nil {
		return types.MarkingResult{}, err
	}

	home := make(map[string]string)
	members := make(map[string]map[string]struct{}, len(key))
	for cat, items := range key {
		set := make(map[string]struct{}, len(items))
		for _, it := range items {
			set[it] = struct{}{}
			home[it] = cat
		}
		members[cat] = set
	}

	var pairs []types.AnswerPair
	for _, cat := range types.OrderedKeys(user) {
		placed := make(map[string]struct{}, len(user[cat]))
		for _, item := range user[cat] {
			_, ok := members[cat][item]
			if _, again := placed[item]; again {
				ok = false
			}
			placed[item] = struct{}{}
			p := types.AnswerPair{UserAnswer: cat + ": " + item, IsCorrect: ok}
			if want, known := home[item]; known {
				p.CorrectAnswer = want + ": " + item
			}
			pairs = append(pairs, p)
		}
	}
	return pairsResult(pairs, float64(countCorrect(pairs))), nil
}
