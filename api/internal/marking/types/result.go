package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// AnswerPair is one row of a marking table.
type AnswerPair struct {
	CorrectAnswer string `json:"correctAnswer"`
	UserAnswer    string `json:"userAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

// AnnotatedAnswer is either the canonical answer text or a table of pairs.
type AnnotatedAnswer struct {
	Text  string
	Pairs []AnswerPair
}

func AnnotatedText(s string) AnnotatedAnswer { return AnnotatedAnswer{Text: s} }
func AnnotatedPairs(p []AnswerPair) AnnotatedAnswer { return AnnotatedAnswer{Pairs: p} }

func (a AnnotatedAnswer) MarshalJSON() ([]byte, error) {
	if a.Pairs != nil {
		return json.Marshal(a.Pairs)
	}
	return json.Marshal(a.Text)
}

func (a *AnnotatedAnswer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		a.Text = ""
		return json.Unmarshal(b, &a.Pairs)
	}
	a.Pairs = nil
	if bytes.Equal(b, []byte("null")) {
		a.Text = ""
		return nil
	}
	return json.Unmarshal(b, &a.Text)
}

// Annotation holds verbatim substrings of the student's answer.
type Annotation struct {
	Strong []string `json:"strong"`
	Weak   []string `json:"weak"`
}

// MarkingResult is produced once per attempt. 0 <= UserMark <= MarkMax always holds.
type MarkingResult struct {
	QuestionLegacyID string          `json:"questionLegacyId"`
	UserAnswer       AnswerPayload   `json:"userAnswer"`
	AnnotatedAnswer  AnnotatedAnswer `json:"annotatedAnswer"`
	MarkingTable     string          `json:"markingTable"`
	MarkMax          int             `json:"markMax"`
	UserMark         float64         `json:"userMark"`
	Annotations      []Annotation    `json:"annotations,omitempty"`
	Feedback         string          `json:"feedback,omitempty"`
	IsMarked         bool            `json:"isMarked"`
}

// UnmarshalJSON restores the union userAnswer, used when reading stored attempts.
func (r *MarkingResult) UnmarshalJSON(b []byte) error {
	type plain MarkingResult
	var aux struct {
		plain
		UserAnswer json.RawMessage `json:"userAnswer"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = MarkingResult(aux.plain)
	p, err := DecodePayload(aux.UserAnswer)
	if err != nil {
		return err
	}
	r.UserAnswer = p
	return nil
}

// Attempt is one entry of a question's append-only grading history.
type Attempt struct {
	ID               string        `json:"id"`
	QuestionLegacyID string        `json:"questionLegacyId"`
	CreatedAt        time.Time     `json:"createdAt"`
	Result           MarkingResult `json:"result"`
}

// ClampMark bounds a mark to [0, markMax]; NaN becomes 0.
func ClampMark(mark float64, markMax int) float64 {
	if mark != mark || mark < 0 {
		return 0
	}
	if markMax < 0 {
		return 0
	}
	if m := float64(markMax); mark > m {
		return m
	}
	return mark
}
