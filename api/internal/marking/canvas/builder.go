// Package canvas turns freehand ink and typed expressions into the evaluation
// context sent to the model grader: a LaTeX summary plus one rendered image.
package canvas

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"mark-engine/api/internal/marking/types"
	"mark-engine/api/internal/util"
)

// LatexEntry is one row of the textual expression summary.
type LatexEntry struct {
	Index            int     `json:"index"`
	Latex            string  `json:"latex"`
	Confidence       float64 `json:"confidence"`
	IsMathValid      bool    `json:"isMathValid"`
	CalculatedOutput string  `json:"calculatedOutput"`
}

// Context is what the model grader receives for one question.
type Context struct {
	Latex     []LatexEntry
	LatexJSON string        // "" when there are no expressions
	Image     string        // PNG data URL, "" when nothing was drawn or rendering failed
	Canvas    *types.Canvas // canvas with point arrays removed
}

type Builder struct {
	log    *zap.Logger
	layout Layout
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log, layout: DefaultLayout}
}

// WithLayout overrides image geometry.
func (b *Builder) WithLayout(l Layout) *Builder {
	b.layout = l
	return b
}

// Build never fails: a rendering problem only costs the image.
func (b *Builder) Build(questionID, question, stem string, c *types.Canvas, desmos []types.Expression) Context {
	out := Context{Latex: Summarise(c, desmos)}
	if len(out.Latex) > 0 {
		if js, err := json.Marshal(out.Latex); err == nil {
			out.LatexJSON = string(js)
		}
	}

	blocks := inkBlocks(c, desmos)
	if len(blocks) == 0 {
		out.Canvas = c.WithoutInk()
		return out
	}
	png, err := render(b.layout, Header(question, stem), blocks)
	if err != nil {
		b.log.Warn("canvas: render failed, sending raw ink instead of image",
			zap.String("question_id", questionID), zap.Error(err))
		out.Canvas = keepInk(c, maxFallbackPoints)
		return out
	}
	out.Image = util.MakeDataURL("image/png", base64.StdEncoding.EncodeToString(png))
	out.Canvas = c.WithoutInk()
	return out
}

// maxFallbackPoints bounds the ink sent as JSON when no image could be made.
const maxFallbackPoints = 4000

// keepInk copies c with non-finite points dropped (JSON cannot carry them) and
// at most limit points in total, paths first.
func keepInk(c *types.Canvas, limit int) *types.Canvas {
	if c == nil {
		return nil
	}
	budget := limit
	copyStrokes := func(in []types.Stroke) []types.Stroke {
		var out []types.Stroke
		for _, s := range in {
			pts := make([]types.Point, 0, len(s.Points))
			for _, p := range s.Points {
				if budget == 0 {
					break
				}
				if !finite(p) {
					continue
				}
				pts = append(pts, p)
				budget--
			}
			if len(pts) > 0 {
				s.Points = pts
				out = append(out, s)
			}
		}
		return out
	}
	out := &types.Canvas{
		Paths:       copyStrokes(c.Paths),
		Expressions: make([]types.Expression, len(c.Expressions)),
	}
	for i, e := range c.Expressions {
		e.Strokes = copyStrokes(e.Strokes)
		out.Expressions[i] = e
	}
	return out
}

// Summarise lists every expression, canvas expressions first, indexed from 0.
func Summarise(c *types.Canvas, desmos []types.Expression) []LatexEntry {
	var exprs []types.Expression
	if c != nil {
		exprs = append(exprs, c.Expressions...)
	}
	exprs = append(exprs, desmos...)

	out := make([]LatexEntry, 0, len(exprs))
	for _, e := range exprs {
		if strings.TrimSpace(e.Latex) == "" {
			continue
		}
		out = append(out, LatexEntry{
			Index:            len(out),
			Latex:            e.Latex,
			Confidence:       e.Confidence,
			IsMathValid:      e.IsMathValid,
			CalculatedOutput: e.CalculatedOutput,
		})
	}
	return out
}

// Header is the text drawn above the ink: stem first, then the question.
func Header(question, stem string) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(stem); s != "" {
		parts = append(parts, s)
	}
	if q := strings.TrimSpace(question); q != "" {
		parts = append(parts, q)
	}
	return strings.Join(parts, "\n")
}

// inkBlocks groups strokes in drawing order: freehand paths, then each expression.
func inkBlocks(c *types.Canvas, desmos []types.Expression) [][]types.Stroke {
	var blocks [][]types.Stroke
	add := func(s []types.Stroke) {
		for _, st := range s {
			if len(st.Points) > 0 {
				blocks = append(blocks, s)
				return
			}
		}
	}
	if c != nil {
		add(c.Paths)
		for _, e := range c.Expressions {
			add(e.Strokes)
		}
	}
	for _, e := range desmos {
		add(e.Strokes)
	}
	return blocks
}
