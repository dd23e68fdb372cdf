package gpt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mark-engine/api/internal/marking/llm"
	"mark-engine/api/internal/util"
)

var acceptedImage = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// GenerateStructured sends one strict json_schema request to the Responses API.
func (e *Engine) GenerateStructured(ctx context.Context, in llm.Request) (llm.Output, error) {
	if e.APIKey == "" {
		return llm.Output{}, fmt.Errorf("OPENAI_API_KEY is empty")
	}
	model := e.GetModel()
	if model == "" {
		model = "gpt-4o-mini"
	}

	schema, err := util.ParseSchema(in.Schema)
	if err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: %w", err)
	}
	util.FixJSONSchemaStrict(schema)

	userContent := []any{
		map[string]any{"type": "input_text", "text": in.Prompt},
	}
	if in.Image != "" {
		imgBytes, mimeFromDataURL, err := util.DecodeBase64MaybeDataURL(in.Image)
		if err != nil || len(imgBytes) == 0 {
			return llm.Output{}, fmt.Errorf("openai mark: invalid image base64")
		}
		mime := util.PickMIME("", mimeFromDataURL, imgBytes)
		if !acceptedImage[strings.ToLower(mime)] {
			return llm.Output{}, fmt.Errorf("openai mark: unsupported MIME %s (need image/jpeg|png|webp)", mime)
		}
		dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(imgBytes))
		userContent = append(userContent, map[string]any{"type": "input_image", "image_url": dataURL})
	}

	body := map[string]any{
		"model": model,
		"input": []any{
			map[string]any{
				"role": "system",
				"content": []any{
					map[string]any{"type": "input_text", "text": in.System},
				},
			},
			map[string]any{
				"type":    "message",
				"role":    "user",
				"content": userContent,
			},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   llm.MARK,
				"strict": true,
				"schema": schema,
			},
		},
	}
	// gpt-5 models reject a non-default temperature.
	if !strings.Contains(model, "gpt-5") {
		body["temperature"] = 0
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return llm.Output{}, fmt.Errorf("openai mark %d: %s", resp.StatusCode, clip(bytes.TrimSpace(raw)))
	}

	out := util.StripCodeFences(responseText(raw))
	if out == "" {
		return llm.Output{}, fmt.Errorf("openai mark: empty output; body=%s", clip(raw))
	}
	var mo llm.Output
	if err := json.Unmarshal([]byte(out), &mo); err != nil {
		return llm.Output{}, fmt.Errorf("openai mark: bad JSON: %w", err)
	}
	return mo, nil
}

// responses is the slice of the Responses API envelope the grader reads.
type responses struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// responseText returns output_text, or the output_text parts of every output
// message joined by newlines. Refusals and other part types are ignored.
func responseText(raw []byte) string {
	var r responses
	if json.Unmarshal(raw, &r) != nil {
		return ""
	}
	if s := strings.TrimSpace(r.OutputText); s != "" {
		return s
	}
	var parts []string
	for _, o := range r.Output {
		for _, c := range o.Content {
			if c.Type == "output_text" && strings.TrimSpace(c.Text) != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

const maxErrBody = 1024

func clip(b []byte) string {
	return util.ClampRunes(string(b), maxErrBody)
}
