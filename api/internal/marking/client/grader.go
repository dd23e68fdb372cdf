// Package client grades the question types that need no model: every function
// here is pure and deterministic for a given MarkingContext.
package client

import (
	"strings"

	"go.uber.org/zap"

	"mark-engine/api/internal/marking/matcher"
	"mark-engine/api/internal/marking/types"
)

type gradeFunc func(g *Grader, mc types.MarkingContext) (types.MarkingResult, error)

// graders is the per-type table. Every entry of types.ClientTypes must be present.
var graders = map[types.QuestionType]gradeFunc{
	types.MCQ:               gradeChoice,
	types.TrueFalse:         gradeChoice,
	types.MCQMultiple:       gradeMultiple,
	types.MatchPair:         gradeMatchPair,
	types.FillInTheGapsText: gradeGaps,
	types.Spot:              gradeSpot,
	types.FixSentence:       gradeFixSentence,
	types.Reorder:           gradeReorder,
	types.Group:             gradeGroup,
	types.Number:            gradeNumber,
}

type Grader struct {
	match matcher.AnswerMatcher
	log   *zap.Logger
}

func New(m matcher.AnswerMatcher, log *zap.Logger) *Grader {
	if m == nil {
		m = matcher.Default{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Grader{match: m, log: log}
}

// Supports reports whether a type has a client-side algorithm.
func Supports(t types.QuestionType) bool {
	_, ok := graders[t]
	return ok
}

// Grade runs the algorithm for mc.QuestionType. An unknown type is logged and
// yields an empty, unmarked result instead of an error.
func (g *Grader) Grade(mc types.MarkingContext) (types.MarkingResult, error) {
	fn, ok := graders[mc.QuestionType]
	if !ok {
		g.log.Warn("client grader: unhandled question type",
			zap.String("question_id", mc.QuestionLegacyID),
			zap.String("question_type", string(mc.QuestionType)))
		return types.MarkingResult{
			QuestionLegacyID: mc.QuestionLegacyID,
			UserAnswer:       mc.UserAnswer,
			MarkMax:          mc.MarkMax,
		}, nil
	}
	res, err := fn(g, mc)
	if err != nil {
		return types.MarkingResult{}, err
	}
	res.QuestionLegacyID = mc.QuestionLegacyID
	res.UserAnswer = mc.UserAnswer
	res.MarkMax = mc.MarkMax
	res.UserMark = types.ClampMark(res.UserMark, mc.MarkMax)
	res.IsMarked = true
	return res, nil
}

// MarkingTable renders pairs as the markdown table shown to markers.
func MarkingTable(pairs []types.AnswerPair) string {
	var b strings.Builder
	b.WriteString("| Point | Student response | Mark |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, p := range pairs {
		mark := "0"
		if p.IsCorrect {
			mark = "1"
		}
		b.WriteString("| " + cell(p.CorrectAnswer) + " | " + cell(p.UserAnswer) + " | " + mark + " |\n")
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func cell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}

func countCorrect(pairs []types.AnswerPair) int {
	n := 0
	for _, p := range pairs {
		if p.IsCorrect {
			n++
		}
	}
	return n
}

func binary(ok bool, markMax int) float64 {
	if ok {
		return float64(markMax)
	}
	return 0
}

// pairsResult is the common tail of every table-producing grader.
func pairsResult(pairs []types.AnswerPair, mark float64) types.MarkingResult {
	if pairs == nil {
		pairs = []types.AnswerPair{}
	}
	return types.MarkingResult{
		AnnotatedAnswer: types.AnnotatedPairs(pairs),
		MarkingTable:    MarkingTable(pairs),
		UserMark:        mark,
	}
}

func asText(mc types.MarkingContext, field string, p types.AnswerPayload) (string, error) {
	switch v := p.(type) {
	case types.Text:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return "", types.Malformed(mc.QuestionType, field, "text", p)
	}
}

func asList(mc types.MarkingContext, field string, p types.AnswerPayload) ([]string, error) {
	switch v := p.(type) {
	case types.List:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, types.Malformed(mc.QuestionType, field, "list", p)
	}
}

// asOrdered accepts a list or a mapping read in key order.
func asOrdered(mc types.MarkingContext, field string, p types.AnswerPayload) ([]string, error) {
	switch v := p.(type) {
	case types.List:
		return v, nil
	case types.Mapping:
		return v.Values(), nil
	case nil:
		return nil, nil
	default:
		return nil, types.Malformed(mc.QuestionType, field, "list or mapping", p)
	}
}
