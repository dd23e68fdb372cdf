package types

import (
	"encoding/json"
	"fmt"
)

// Point is one sampled ink coordinate in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one freehand path.
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color,omitempty"` // "#rrggbb", black when empty
	Width  float64 `json:"width,omitempty"`
}

// Expression is one typed or handwriting-recognised math expression.
type Expression struct {
	Latex            string   `json:"latex"`
	Confidence       float64  `json:"confidence,omitempty"` // [0,1]
	IsMathValid      bool     `json:"isMathValid"`
	CalculatedOutput string   `json:"calculatedOutput,omitempty"`
	Strokes          []Stroke `json:"strokes,omitempty"`
}

// Canvas is the freehand working attached to a question.
type Canvas struct {
	Paths       []Stroke     `json:"paths,omitempty"`
	Expressions []Expression `json:"expressions,omitempty"`
}

// Empty reports whether the canvas carries nothing worth sending to the grader.
func (c *Canvas) Empty() bool {
	return c == nil || (len(c.Paths) == 0 && len(c.Expressions) == 0)
}

// WithoutInk returns a copy with every point array dropped; the ink lives in the image.
func (c *Canvas) WithoutInk() *Canvas {
	if c == nil {
		return nil
	}
	out := &Canvas{Expressions: make([]Expression, len(c.Expressions))}
	for i, e := range c.Expressions {
		e.Strokes = nil
		out.Expressions[i] = e
	}
	return out
}

// MarkingContext is the immutable input of one grading attempt.
type MarkingContext struct {
	QuestionLegacyID  string        `json:"questionLegacyId" validate:"notblank"`
	QuestionType      QuestionType  `json:"questionType" validate:"required"`
	Question          string        `json:"question"`
	QuestionStem      string        `json:"questionStem,omitempty"`
	UserAnswer        AnswerPayload `json:"userAnswer"`
	CorrectAnswer     AnswerPayload `json:"correctAnswer"`
	Options           []string      `json:"options,omitempty"`
	MarkMax           int           `json:"markMax" validate:"gte=0"`
	MarkScheme        []string      `json:"markScheme,omitempty"`
	Canvas            *Canvas       `json:"canvas,omitempty"`
	DesmosExpressions []Expression  `json:"desmosExpressions,omitempty"`
}

// UnmarshalJSON decodes the two union fields by shape.
func (mc *MarkingContext) UnmarshalJSON(b []byte) error {
	type plain MarkingContext
	var aux struct {
		plain
		UserAnswer    json.RawMessage `json:"userAnswer"`
		CorrectAnswer json.RawMessage `json:"correctAnswer"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*mc = MarkingContext(aux.plain)

	var err error
	if mc.UserAnswer, err = DecodePayload(aux.UserAnswer); err != nil {
		return fmt.Errorf("userAnswer: %w", err)
	}
	if mc.CorrectAnswer, err = DecodePayload(aux.CorrectAnswer); err != nil {
		return fmt.Errorf("correctAnswer: %w", err)
	}
	return nil
}
