package client

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mark-engine/api/internal/marking/types"
)

func grade(t *testing.T, mc types.MarkingContext) types.MarkingResult {
	t.Helper()
	res, err := New(nil, nil).Grade(mc)
	require.NoError(t, err)
	return res
}

func TestEveryClientTypeHasAGrader(t *testing.T) {
	for _, qt := range types.ClientTypes {
		assert.True(t, Supports(qt), "no client grader for %s", qt)
	}
	assert.Len(t, graders, len(types.ClientTypes))
}

func TestChoice(t *testing.T) {
	options := []string{"London", "Paris", "Berlin", "Madrid"}
	tests := []struct {
		name    string
		qt      types.QuestionType
		correct types.AnswerPayload
		user    types.AnswerPayload
		options []string
		want    float64
	}{
		{"index resolves to option", types.MCQ, types.Text("1"), types.Text("Paris"), options, 2},
		{"wrong option", types.MCQ, types.Text("1"), types.Text("Berlin"), options, 0},
		{"mcq is case sensitive", types.MCQ, types.Text("1"), types.Text("paris"), options, 0},
		{"invalid index falls back to literal", types.MCQ, types.Text("7"), types.Text("7"), options, 2},
		{"literal answer without options", types.MCQ, types.Text("Paris"), types.Text("Paris"), nil, 2},
		{"true_false ignores case", types.TrueFalse, types.Text("True"), types.Text("true"), nil, 2},
		{"true_false by index", types.TrueFalse, types.Text("0"), types.Text("TRUE"), []string{"True", "False"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grade(t, types.MarkingContext{
				QuestionLegacyID: "q1",
				QuestionType:     tt.qt,
				UserAnswer:       tt.user,
				CorrectAnswer:    tt.correct,
				Options:          tt.options,
				MarkMax:          2,
			})
			assert.Equal(t, tt.want, res.UserMark)
			assert.True(t, res.IsMarked)
			assert.Equal(t, "q1", res.QuestionLegacyID)
		})
	}
}

func TestMCQIndexResolutionFromJSON(t *testing.T) {
	var mc types.MarkingContext
	require.NoError(t, json.Unmarshal([]byte(`{
		"questionLegacyId": "geo-1",
		"questionType": "mcq",
		"options": ["London","Paris","Berlin","Madrid"],
		"correctAnswer": 1,
		"userAnswer": "Paris",
		"markMax": 1
	}`), &mc))

	res := grade(t, mc)
	assert.Equal(t, 1.0, res.UserMark)
	assert.Equal(t, "Paris", res.AnnotatedAnswer.Text)
}

func TestMultipleAntiGuessing(t *testing.T) {
	tests := []struct {
		name string
		user types.List
		want float64
	}{
		{"exact set", types.List{"A", "B"}, 2},
		{"one extra cancels one hit", types.List{"A", "B", "C"}, 1},
		{"floor at zero", types.List{"A", "C", "D"}, 0},
		{"partial without extras", types.List{"B"}, 1},
		{"nothing selected", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grade(t, types.MarkingContext{
				QuestionType:  types.MCQMultiple,
				CorrectAnswer: types.Mapping{"0": "A", "1": "B"},
				UserAnswer:    tt.user,
				MarkMax:       2,
			})
			assert.Equal(t, tt.want, res.UserMark)
		})
	}
}

func TestGaps(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.FillInTheGapsText,
		CorrectAnswer: types.Mapping{"0": "Mitochondria", "1": "energy", "10": "cell"},
		UserAnswer:    types.List{"  mitochondria ", "Energy", "wall"},
		MarkMax:       3,
	})
	assert.Equal(t, 2.0, res.UserMark)
	require.Len(t, res.AnnotatedAnswer.Pairs, 3)
	assert.Equal(t, "cell", res.AnnotatedAnswer.Pairs[2].CorrectAnswer)
	assert.False(t, res.AnnotatedAnswer.Pairs[2].IsCorrect)
}

func TestMatchPairAlwaysFullMarks(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.MatchPair,
		CorrectAnswer: types.Mapping{"H2O": "water", "NaCl": "salt"},
		UserAnswer:    types.Mapping{"H2O": "salt", "NaCl": "water"},
		MarkMax:       2,
	})
	assert.Equal(t, 2.0, res.UserMark)
	assert.Equal(t, 0, countCorrect(res.AnnotatedAnswer.Pairs))
}

func TestSpot(t *testing.T) {
	tests := []struct {
		name    string
		correct types.AnswerPayload
		user    types.List
		markMax int
		want    float64
	}{
		{"duplicate correct spot counts once", types.Mapping{"photosynthesis": "process"}, types.List{"photosynthesis", "photosynthesis"}, 1, 1},
		{"surplus penalises over-guessing", types.Mapping{"a": "noun", "b": "verb"}, types.List{"a", "b", "c"}, 2, 1},
		{"uncategorised patterns use raw value", types.Mapping{"cat": "cat", "dog": "dog"}, types.List{"Dog"}, 2, 1},
		{"grouped categories", types.GroupedMapping{"run": {"verb", "noun"}}, types.List{"run [noun, verb]"}, 1, 1},
		{"wrong categories rejected", types.GroupedMapping{"run": {"verb"}}, types.List{"run [noun]"}, 1, 0},
		{"never negative", types.Mapping{"a": "x"}, types.List{"q", "r", "s"}, 1, 0},
		// unique 1, submitted 3: the repeated "a" is dropped, both "x" count
		{"repeated right and wrong tokens, markMax 1", types.Mapping{"a": "a", "b": "b"}, types.List{"a", "a", "x", "x"}, 1, 0},
		{"repeated right and wrong tokens, markMax 2", types.Mapping{"a": "a", "b": "b"}, types.List{"a", "a", "x", "x"}, 2, 0},
		{"repeated right and wrong tokens, markMax 3", types.Mapping{"a": "a", "b": "b"}, types.List{"a", "a", "x", "x"}, 3, 1},
		// a mixed mapping decodes as grouped, so every label is categorised
		{"mixed mapping is categorised", types.GroupedMapping{"cat": {"cat"}, "run": {"verb"}}, types.List{"cat", "run"}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grade(t, types.MarkingContext{
				QuestionType:  types.Spot,
				CorrectAnswer: tt.correct,
				UserAnswer:    tt.user,
				MarkMax:       tt.markMax,
			})
			assert.Equal(t, tt.want, res.UserMark)
		})
	}
}

func TestSpotListsMissedPatterns(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.Spot,
		CorrectAnswer: types.Mapping{"alpha": "greek", "beta": "greek"},
		UserAnswer:    types.List{"alpha"},
		MarkMax:       2,
	})
	assert.Equal(t, 1.0, res.UserMark)
	assert.Contains(t, res.MarkingTable, "| beta [greek] |  | 0 |")
}

func TestFixSentenceNormalisation(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.FixSentence,
		CorrectAnswer: types.Text("well–known fact"),
		UserAnswer:    types.Text("well-known   fact"),
		MarkMax:       2,
	})
	assert.Equal(t, 2.0, res.UserMark)
	require.Len(t, res.AnnotatedAnswer.Pairs, 0)
	assert.Equal(t, "well–known fact", res.AnnotatedAnswer.Text)
}

func TestReorder(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.Reorder,
		CorrectAnswer: types.List{"a", "b", "c", "d"},
		UserAnswer:    types.List{"a", "c", "b", "d"},
		MarkMax:       4,
	})
	assert.Equal(t, 2.0, res.UserMark)
}

func TestGroupNoPenalty(t *testing.T) {
	tests := []struct {
		name    string
		correct types.AnswerPayload
	}{
		{"grouped mapping", types.GroupedMapping{"mammal": {"whale", "bat"}, "fish": {"shark"}}},
		{"json string", types.Text(`{"mammal":["whale","bat"],"fish":["shark"]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grade(t, types.MarkingContext{
				QuestionType:  types.Group,
				CorrectAnswer: tt.correct,
				UserAnswer:    types.GroupedMapping{"mammal": {"whale", "shark"}},
				MarkMax:       3,
			})
			assert.Equal(t, 1.0, res.UserMark)
			assert.Contains(t, res.MarkingTable, "| fish: shark | mammal: shark | 0 |")
		})
	}
}

func TestGroupRepeatedItemCreditedOnce(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.Group,
		CorrectAnswer: types.GroupedMapping{"mammal": {"whale", "bat", "dog"}},
		UserAnswer:    types.GroupedMapping{"mammal": {"whale", "whale", "whale"}},
		MarkMax:       3,
	})
	assert.Equal(t, 1.0, res.UserMark)
	require.Len(t, res.AnnotatedAnswer.Pairs, 3)
	assert.True(t, res.AnnotatedAnswer.Pairs[0].IsCorrect)
	assert.False(t, res.AnnotatedAnswer.Pairs[1].IsCorrect)
	assert.False(t, res.AnnotatedAnswer.Pairs[2].IsCorrect)
}

func TestNumber(t *testing.T) {
	mc := types.MarkingContext{
		QuestionType:  types.Number,
		CorrectAnswer: types.Text("1024"),
		UserAnswer:    types.List{"1", "0", "2", "4"},
		MarkMax:       1,
	}
	assert.Equal(t, 1.0, grade(t, mc).UserMark)

	mc.UserAnswer = types.List{"1", "0", "4", "2"}
	assert.Equal(t, 0.0, grade(t, mc).UserMark)
}

func TestMalformedContext(t *testing.T) {
	_, err := New(nil, nil).Grade(types.MarkingContext{
		QuestionType:  types.Reorder,
		CorrectAnswer: types.List{"a"},
		UserAnswer:    types.Text("a"),
		MarkMax:       1,
	})
	assert.ErrorIs(t, err, types.ErrMalformedContext)
}

func TestUnknownTypeDegradesSilently(t *testing.T) {
	res, err := New(nil, nil).Grade(types.MarkingContext{QuestionLegacyID: "x", QuestionType: "hotspot", MarkMax: 3})
	require.NoError(t, err)
	assert.False(t, res.IsMarked)
	assert.Zero(t, res.UserMark)
}

func TestGradingIsIdempotent(t *testing.T) {
	mc := types.MarkingContext{
		QuestionLegacyID: "spot-7",
		QuestionType:     types.Spot,
		CorrectAnswer:    types.GroupedMapping{"b": {"y"}, "a": {"x", "z"}},
		UserAnswer:       types.List{"a", "zzz", "b"},
		MarkMax:          2,
	}
	first := grade(t, mc)
	second := grade(t, mc)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
}

func TestMarkNeverExceedsMax(t *testing.T) {
	res := grade(t, types.MarkingContext{
		QuestionType:  types.Reorder,
		CorrectAnswer: types.List{"a", "b", "c"},
		UserAnswer:    types.List{"a", "b", "c"},
		MarkMax:       1,
	})
	assert.Equal(t, 1.0, res.UserMark)
}
