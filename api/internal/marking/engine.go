// Package marking is the entry point of the answer evaluation engine. It routes
// each question to the deterministic client grader or to the model grader.
package marking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mark-engine/api/internal/marking/canvas"
	"mark-engine/api/internal/marking/client"
	"mark-engine/api/internal/marking/llm"
	"mark-engine/api/internal/marking/types"
)

const defaultConcurrency = 4

// ModelMarker grades one free-response question.
type ModelMarker interface {
	GradeWithModel(ctx context.Context, in llm.ModelRequest) (types.MarkingResult, error)
}

type Engine struct {
	client      *client.Grader
	model       ModelMarker
	canvas      *canvas.Builder
	log         *zap.Logger
	concurrency int
}

type Option func(*Engine)

func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithCanvasBuilder(b *canvas.Builder) Option {
	return func(e *Engine) {
		if b != nil {
			e.canvas = b
		}
	}
}

func WithClientGrader(g *client.Grader) Option {
	return func(e *Engine) {
		if g != nil {
			e.client = g
		}
	}
}

// New wires an engine. model may be nil when only client types are graded;
// model-family questions then fail with an error.
func New(model ModelMarker, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		client:      client.New(nil, log),
		model:       model,
		canvas:      canvas.NewBuilder(log),
		log:         log,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Grade marks one question. Client types never touch the network; model types
// make exactly one generator call.
func (e *Engine) Grade(ctx context.Context, mc types.MarkingContext) (types.MarkingResult, error) {
	family := mc.QuestionType.Family()
	e.log.Debug("marking: dispatch",
		zap.String("question_id", mc.QuestionLegacyID),
		zap.String("question_type", string(mc.QuestionType)),
		zap.Stringer("family", family))

	switch family {
	case types.FamilyClient:
		return e.client.Grade(mc)
	case types.FamilyModel:
		return e.gradeWithModel(ctx, mc)
	default:
		return types.MarkingResult{}, types.Unsupported(mc.QuestionType)
	}
}

func (e *Engine) gradeWithModel(ctx context.Context, mc types.MarkingContext) (types.MarkingResult, error) {
	if e.model == nil {
		return types.MarkingResult{}, fmt.Errorf("marking %s: model grader is not configured", mc.QuestionLegacyID)
	}
	req := llm.ModelRequest{
		QuestionLegacyID: mc.QuestionLegacyID,
		Question:         mc.Question,
		QuestionStem:     mc.QuestionStem,
		QuestionType:     mc.QuestionType,
		UserAnswer:       mc.UserAnswer,
		CorrectAnswer:    mc.CorrectAnswer,
		MarkMax:          mc.MarkMax,
		MarkScheme:       mc.MarkScheme,
	}
	if !mc.Canvas.Empty() || len(mc.DesmosExpressions) > 0 {
		cc := e.canvas.Build(mc.QuestionLegacyID, mc.Question, mc.QuestionStem, mc.Canvas, mc.DesmosExpressions)
		req.Canvas = cc.Canvas
		req.CanvasLatex = cc.LatexJSON
		req.CanvasImage = cc.Image
	}
	return e.model.GradeWithModel(ctx, req)
}

// BatchItem is the outcome of one question in a batch.
type BatchItem struct {
	Result types.MarkingResult
	Err    error
}

// GradeAll grades every context independently with bounded parallelism. The
// returned slice is index-aligned with in; one failure never affects the others.
func (e *Engine) GradeAll(ctx context.Context, in []types.MarkingContext) []BatchItem {
	out := make([]BatchItem, len(in))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range in {
		g.Go(func() error {
			res, err := e.Grade(gctx, in[i])
			out[i] = BatchItem{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
