// Package llm grades free-response questions through a generative model and
// bounds whatever the model returns.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Request is one structured-generation call.
type Request struct {
	System string
	Prompt string
	Schema string // JSON schema of Output
	Image  string // optional PNG/JPEG data URL
}

// Output is the JSON shape every backend must return.
type Output struct {
	UserMark     float64 `json:"userMark"`
	MarkingTable string  `json:"markingTable"`
	Annotations  struct {
		Strong []string `json:"strong"`
		Weak   []string `json:"weak"`
	} `json:"annotations"`
	Feedback string `json:"feedback"`
}

// Generator is the external marking capability.
type Generator interface {
	Name() string
	GetModel() string
	GenerateStructured(ctx context.Context, in Request) (Output, error)
}

type Engines struct {
	Gemini Generator
	OpenAI Generator
}

func (e *Engines) GetEngine(llmName string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "gemini", "":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, errors.New("openai engine is not configured")
		}
		return e.OpenAI, nil
	default:
		return nil, errors.New("unknown llm_name; use 'gemini' or 'gpt'")
	}
}
