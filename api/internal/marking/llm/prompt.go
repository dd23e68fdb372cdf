package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"mark-engine/api/internal/marking/types"
	"mark-engine/api/internal/util"
)

const MARK = "mark"

// MarkSchema is the output contract given to every backend.
const MarkSchema = `{
  "type": "object",
  "properties": {
    "userMark": {"type": "number", "description": "Marks awarded, between 0 and markMax"},
    "markingTable": {"type": "string", "description": "Markdown table: | Point | Student response | Mark |, one row per mark scheme point, mark 0 or 1"},
    "annotations": {
      "type": "object",
      "properties": {
        "strong": {"type": "array", "items": {"type": "string"}, "description": "Verbatim substrings of the student's answer that earned credit"},
        "weak": {"type": "array", "items": {"type": "string"}, "description": "Verbatim substrings of the student's answer that are wrong or missing detail"}
      },
      "required": ["strong", "weak"]
    },
    "feedback": {"type": "string", "description": "One short sentence of feedback for the student"}
  },
  "required": ["userMark", "markingTable", "annotations", "feedback"]
}`

const defaultSystemPrompt = `You are an exam marker. Mark the student's answer strictly against the numbered mark scheme.
Rules:
- Each mark scheme point is worth one mark. Award a point only when the answer clearly meets it.
- userMark must be between 0 and markMax.
- markingTable is a markdown table with columns | Point | Student response | Mark |, one row per point, Mark is 0 or 1.
- annotations.strong and annotations.weak contain ONLY exact, verbatim substrings copied from the student's answer. Never paraphrase.
- If an image is attached it shows the question followed by the student's handwritten working; treat it as part of the answer.
- feedback is one short sentence addressed to the student.
Return ONLY JSON matching the mark schema. Any text outside JSON is an error.`

const defaultUserPrompt = "Mark the answer and return only JSON matching the mark schema."

// ModelRequest carries everything the model marker receives for one question.
type ModelRequest struct {
	QuestionLegacyID string
	Question         string
	QuestionStem     string
	QuestionType     types.QuestionType
	UserAnswer       types.AnswerPayload
	CorrectAnswer    types.AnswerPayload
	MarkMax          int
	MarkScheme       []string
	Canvas           *types.Canvas // point arrays already removed
	CanvasLatex      string        // JSON array from the canvas builder
	CanvasImage      string        // data URL, may be empty
}

// schemePoints numbers the mark scheme, or falls back to the canonical answer.
func schemePoints(in ModelRequest) []string {
	points := make([]string, 0, len(in.MarkScheme))
	for _, p := range in.MarkScheme {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		if c := strings.TrimSpace(types.AnswerText(in.CorrectAnswer)); c != "" {
			points = append(points, c)
		}
	}
	for i := range points {
		points[i] = fmt.Sprintf("%d. %s", i+1, points[i])
	}
	return points
}

// BuildRequest assembles the prompt pair for a backend.
func BuildRequest(in ModelRequest) (Request, error) {
	input := map[string]any{
		"question":      in.Question,
		"questionType":  in.QuestionType,
		"markMax":       in.MarkMax,
		"markScheme":    schemePoints(in),
		"studentAnswer": types.AnswerText(in.UserAnswer),
		"hasImage":      in.CanvasImage != "",
	}
	if s := strings.TrimSpace(in.QuestionStem); s != "" {
		input["questionStem"] = s
	}
	if !in.Canvas.Empty() {
		input["canvas"] = in.Canvas
	}
	if l := strings.TrimSpace(in.CanvasLatex); l != "" {
		input["canvasLatex"] = json.RawMessage(l)
	}

	userObj := map[string]any{
		"task":  util.LoadPrompt(MARK, "user", defaultUserPrompt),
		"input": input,
	}
	userJSON, err := json.Marshal(userObj)
	if err != nil {
		return Request{}, fmt.Errorf("mark prompt: %w", err)
	}
	return Request{
		System: util.LoadPrompt(MARK, "system", defaultSystemPrompt),
		Prompt: "INPUT_JSON:\n" + string(userJSON),
		Schema: MarkSchema,
		Image:  in.CanvasImage,
	}, nil
}
