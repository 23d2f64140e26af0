package diagnose

import (
	"context"
	"errors"
	"strings"
)

// Engine sends one classification request and returns the model's raw reply.
type Engine interface {
	Name() string
	GetModel() string
	Classify(ctx context.Context, req ClassificationRequest) (Reply, error)
}

type Engines struct {
	Default string
	OpenAI  Engine
	Gemini  Engine
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	switch name {
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, errors.New("openai engine is not configured")
		}
		return e.OpenAI, nil
	case "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	default:
		return nil, errors.New("unknown llm_name; use 'gpt' or 'gemini'")
	}
}
