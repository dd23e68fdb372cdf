package marking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mark-engine/api/internal/marking/llm"
	"mark-engine/api/internal/marking/types"
)

type recordingMarker struct {
	mu    sync.Mutex
	calls []llm.ModelRequest
	fail  map[string]error
}

func (r *recordingMarker) GradeWithModel(_ context.Context, in llm.ModelRequest) (types.MarkingResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, in)
	r.mu.Unlock()
	if err := r.fail[in.QuestionLegacyID]; err != nil {
		return types.MarkingResult{}, err
	}
	return types.MarkingResult{QuestionLegacyID: in.QuestionLegacyID, MarkMax: in.MarkMax, UserMark: 1, IsMarked: true}, nil
}

type fixedGenerator struct{ mark float64 }

func (fixedGenerator) Name() string     { return "fixed" }
func (fixedGenerator) GetModel() string { return "fixed" }
func (f fixedGenerator) GenerateStructured(context.Context, llm.Request) (llm.Output, error) {
	return llm.Output{UserMark: f.mark}, nil
}

func TestGrade_RoutesClientTypesLocally(t *testing.T) {
	m := &recordingMarker{}
	e := New(m, nil)

	res, err := e.Grade(context.Background(), types.MarkingContext{
		QuestionLegacyID: "q1",
		QuestionType:     types.TrueFalse,
		UserAnswer:       types.Text("True"),
		CorrectAnswer:    types.Text("true"),
		MarkMax:          1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.UserMark)
	assert.True(t, res.IsMarked)
	assert.Empty(t, m.calls)
}

func TestGrade_RoutesEveryModelType(t *testing.T) {
	for _, qt := range types.ModelTypes {
		t.Run(string(qt), func(t *testing.T) {
			m := &recordingMarker{}
			_, err := New(m, nil).Grade(context.Background(), types.MarkingContext{
				QuestionLegacyID: "q-" + string(qt),
				QuestionType:     qt,
				UserAnswer:       types.Text("answer"),
				MarkMax:          3,
			})
			require.NoError(t, err)
			require.Len(t, m.calls, 1)
			assert.Equal(t, qt, m.calls[0].QuestionType)
			assert.Empty(t, m.calls[0].CanvasImage)
		})
	}
}

func TestGrade_UnsupportedType(t *testing.T) {
	m := &recordingMarker{}
	_, err := New(m, nil).Grade(context.Background(), types.MarkingContext{
		QuestionLegacyID: "q1",
		QuestionType:     "essay_plan",
	})
	assert.ErrorIs(t, err, types.ErrUnsupportedQuestionType)
	assert.Empty(t, m.calls)
}

func TestGrade_ModelWithoutGenerator(t *testing.T) {
	_, err := New(nil, nil).Grade(context.Background(), types.MarkingContext{
		QuestionLegacyID: "q1",
		QuestionType:     types.Explain,
	})
	assert.Error(t, err)
}

func TestGrade_BuildsCanvasContext(t *testing.T) {
	m := &recordingMarker{}
	mc := types.MarkingContext{
		QuestionLegacyID: "q-calc",
		QuestionType:     types.Calculate,
		Question:         "Work out 3 x 4",
		MarkMax:          2,
		Canvas: &types.Canvas{
			Paths: []types.Stroke{{Points: []types.Point{{X: 0, Y: 0}, {X: 40, Y: 20}}}},
			Expressions: []types.Expression{{
				Latex:   "3\\times4=12",
				Strokes: []types.Stroke{{Points: []types.Point{{X: 5, Y: 5}, {X: 30, Y: 8}}}},
			}},
		},
	}
	_, err := New(m, nil).Grade(context.Background(), mc)
	require.NoError(t, err)
	require.Len(t, m.calls, 1)

	got := m.calls[0]
	assert.True(t, strings.HasPrefix(got.CanvasImage, "data:image/png;base64,"))
	assert.Contains(t, got.CanvasLatex, `3\\times4=12`)
	require.NotNil(t, got.Canvas)
	assert.Nil(t, got.Canvas.Expressions[0].Strokes)
	assert.NotNil(t, mc.Canvas.Expressions[0].Strokes)
}

func TestGrade_ClampsModelMark(t *testing.T) {
	e := New(llm.NewGrader(fixedGenerator{mark: 9}, nil), nil)
	res, err := e.Grade(context.Background(), types.MarkingContext{
		QuestionLegacyID: "q1",
		QuestionType:     types.Describe,
		UserAnswer:       types.Text("it rises"),
		MarkMax:          4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.UserMark)
}

func TestGradeAll_ItemsAreIndependent(t *testing.T) {
	boom := errors.New("model unavailable")
	m := &recordingMarker{fail: map[string]error{"q2": boom}}
	e := New(m, nil, WithConcurrency(2))

	in := []types.MarkingContext{
		{QuestionLegacyID: "q1", QuestionType: types.Explain, MarkMax: 2},
		{QuestionLegacyID: "q2", QuestionType: types.Explain, MarkMax: 2},
		{QuestionLegacyID: "q3", QuestionType: types.Number, UserAnswer: types.List{"4", "2"}, CorrectAnswer: types.Text("42"), MarkMax: 1},
		{QuestionLegacyID: "q4", QuestionType: "unknown"},
	}
	out := e.GradeAll(context.Background(), in)
	require.Len(t, out, 4)

	assert.NoError(t, out[0].Err)
	assert.Equal(t, "q1", out[0].Result.QuestionLegacyID)
	assert.ErrorIs(t, out[1].Err, boom)
	assert.NoError(t, out[2].Err)
	assert.Equal(t, 1.0, out[2].Result.UserMark)
	assert.ErrorIs(t, out[3].Err, types.ErrUnsupportedQuestionType)
}
