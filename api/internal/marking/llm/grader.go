package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mark-engine/api/internal/marking/types"
	"mark-engine/api/internal/util"
)

const (
	maxAnnotations     = 5
	maxAnnotationRunes = 200
	maxFeedbackRunes   = 240
)

type Grader struct {
	gen Generator
	log *zap.Logger
}

func NewGrader(gen Generator, log *zap.Logger) *Grader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Grader{gen: gen, log: log}
}

// GradeWithModel calls the generator once and repackages its output. The mark is
// always clamped to [0, MarkMax] here, whatever the model said. Errors from the
// generator are returned as is; there is no retry.
func (g *Grader) GradeWithModel(ctx context.Context, in ModelRequest) (types.MarkingResult, error) {
	if g.gen == nil {
		return types.MarkingResult{}, fmt.Errorf("model grader: no generator configured")
	}
	req, err := BuildRequest(in)
	if err != nil {
		return types.MarkingResult{}, err
	}

	out, err := g.gen.GenerateStructured(ctx, req)
	if err != nil {
		g.log.Error("model grader: generation failed",
			zap.String("question_id", in.QuestionLegacyID),
			zap.String("engine", g.gen.Name()),
			zap.Error(err))
		return types.MarkingResult{}, err
	}

	mark := types.ClampMark(out.UserMark, in.MarkMax)
	if mark != out.UserMark {
		g.log.Warn("model grader: mark clamped",
			zap.String("question_id", in.QuestionLegacyID),
			zap.Float64("raw_mark", out.UserMark),
			zap.Int("mark_max", in.MarkMax))
	}

	haystacks := append([]string{types.AnswerText(in.UserAnswer)}, latexStrings(in.CanvasLatex)...)
	annotation := types.Annotation{
		Strong: verbatim(out.Annotations.Strong, haystacks),
		Weak:   verbatim(out.Annotations.Weak, haystacks),
	}

	annotated := strings.TrimSpace(types.AnswerText(in.CorrectAnswer))
	if annotated == "" {
		annotated = strings.Join(schemePoints(in), "\n")
	}

	return types.MarkingResult{
		QuestionLegacyID: in.QuestionLegacyID,
		UserAnswer:       in.UserAnswer,
		AnnotatedAnswer:  types.AnnotatedText(annotated),
		MarkingTable:     strings.TrimSpace(out.MarkingTable),
		MarkMax:          in.MarkMax,
		UserMark:         mark,
		Annotations:      []types.Annotation{annotation},
		Feedback:         util.ClampRunes(strings.TrimSpace(out.Feedback), maxFeedbackRunes),
		IsMarked:         true,
	}, nil
}

// latexStrings unpacks the canvas summary so annotations are checked against
// the expressions as written, not their JSON escaping.
func latexStrings(summary string) []string {
	if strings.TrimSpace(summary) == "" {
		return nil
	}
	var entries []struct {
		Latex string `json:"latex"`
	}
	if err := json.Unmarshal([]byte(summary), &entries); err != nil {
		return []string{summary}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Latex)
	}
	return out
}

// verbatim keeps only strings that occur literally in one of the haystacks.
func verbatim(in []string, haystacks []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if len(out) >= maxAnnotations {
			break
		}
		s = util.ClampRunes(strings.TrimSpace(s), maxAnnotationRunes)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h, s) {
				out = append(out, s)
				seen[s] = struct{}{}
				break
			}
		}
	}
	return out
}
