package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"mark-engine/api/internal/marking/llm"
	"mark-engine/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// GenerateStructured returns JSON matching llm.MarkSchema. The image, if any, is
// sent as a separate blob part after the textual input.
func (e *Engine) GenerateStructured(ctx context.Context, in llm.Request) (llm.Output, error) {
	if e.APIKey == "" {
		return llm.Output{}, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return llm.Output{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return llm.Output{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   MarkResponseSchema(),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(in.System),
			genai.Text("mark.schema.json:\n" + in.Schema),
		},
	}

	parts := []genai.Part{genai.Text(in.Prompt)}
	if in.Image != "" {
		imgBytes, mimeFromDataURL, err := util.DecodeBase64MaybeDataURL(in.Image)
		if err != nil {
			return llm.Output{}, fmt.Errorf("gemini mark: bad image base64: %w", err)
		}
		parts = append(parts, genai.Blob{MIMEType: util.PickMIME("", mimeFromDataURL, imgBytes), Data: imgBytes})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return llm.Output{}, fmt.Errorf("gemini mark: %w", err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return llm.Output{}, fmt.Errorf("gemini mark: empty response")
	}
	txt = util.StripCodeFences(txt)

	var out llm.Output
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return llm.Output{}, fmt.Errorf("gemini mark: bad JSON: %w", err)
	}
	return out, nil
}

// MarkResponseSchema mirrors llm.MarkSchema in the SDK's schema type.
func MarkResponseSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	list := &genai.Schema{Type: genai.TypeArray, Items: str}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"userMark":     {Type: genai.TypeNumber},
			"markingTable": str,
			"annotations": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"strong": list,
					"weak":   list,
				},
				Required: []string{"strong", "weak"},
			},
			"feedback": str,
		},
		Required: []string{"userMark", "markingTable", "annotations", "feedback"},
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
