package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"paddy-doctor/api/internal/diagnose"
)

type Engine struct {
	APIKey     string
	Model      string
	Prompt     string
	Generation diagnose.Generation
	JSONMode   bool // ResponseMIMEType = application/json
	opts       []option.ClientOption
}

func New(apiKey, model, systemPrompt string, opts ...option.ClientOption) *Engine {
	return &Engine{
		APIKey:     strings.TrimSpace(apiKey),
		Model:      strings.TrimSpace(model),
		Prompt:     systemPrompt,
		Generation: diagnose.DefaultGeneration,
		opts:       opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// configure выставляет system-инструкцию и фиксированные параметры генерации.
func (e *Engine) configure(m *genai.GenerativeModel) {
	g := e.Generation
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(g.Temperature),
		TopP:            ptrFloat32(g.TopP),
		MaxOutputTokens: ptrInt32(g.MaxTokens),
	}
	if e.JSONMode {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(e.Prompt)},
	}
}

func (e *Engine) parts(req diagnose.ClassificationRequest) []genai.Part {
	return []genai.Part{
		genai.Text(diagnose.UserInstruction),
		&genai.Blob{MIMEType: req.MIME, Data: req.ImageBytes},
	}
}

func (e *Engine) Classify(ctx context.Context, req diagnose.ClassificationRequest) (diagnose.Reply, error) {
	if e.APIKey == "" {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: errors.New("GEMINI_API_KEY is empty")}
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return diagnose.Reply{}, fmt.Errorf("gemini: model is nil")
	}
	e.configure(m)

	start := time.Now()
	resp, err := m.GenerateContent(ctx, e.parts(req)...)
	log.Printf("gemini classify time: %d ms", time.Since(start).Milliseconds())
	if err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: err}
	}

	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return diagnose.Reply{}, &diagnose.ExtractionError{Reason: diagnose.ReasonEmptyCompletion, Raw: describe(resp)}
	}
	return diagnose.Reply{Text: txt, Raw: []byte(txt)}, nil
}

// --------------------------- helpers ---------------------------

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
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

func describe(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "<nil response>"
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return fmt.Sprintf("prompt blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		return fmt.Sprintf("finish reason: %v", resp.Candidates[0].FinishReason)
	}
	return "no candidates"
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
