package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/prompt"
	"paddy-doctor/api/internal/util"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	APIKey     string
	Model      string
	BaseURL    string
	Prompt     string
	Generation diagnose.Generation
	// JSONMode просит модель отвечать строго по схеме (response_format).
	JSONMode bool
	httpc    *http.Client
}

func New(key, model, baseURL, systemPrompt string, timeout time.Duration) *Engine {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second, // TCP connect
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	return &Engine{
		APIKey:     strings.TrimSpace(key),
		Model:      strings.TrimSpace(model),
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Prompt:     systemPrompt,
		Generation: diagnose.DefaultGeneration,
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

// BuildRequest собирает тело chat/completions: system-промпт, текст пользователя и картинку.
func (e *Engine) BuildRequest(req diagnose.ClassificationRequest) map[string]any {
	g := e.Generation
	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{
				"role": "system",
				"content": []any{
					map[string]any{"type": "text", "text": e.Prompt},
				},
			},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": diagnose.UserInstruction},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": req.DataURL()}},
				},
			},
		},
		"temperature":       g.Temperature,
		"max_tokens":        g.MaxTokens,
		"top_p":             g.TopP,
		"frequency_penalty": g.FrequencyPenalty,
		"presence_penalty":  g.PresencePenalty,
	}
	if e.JSONMode {
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "paddy_diagnosis",
				"schema": prompt.Schema(),
			},
		}
	}
	return body
}

func (e *Engine) Classify(ctx context.Context, in diagnose.ClassificationRequest) (diagnose.Reply, error) {
	if e.APIKey == "" {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: errors.New("OPENAI_API_KEY is empty")}
	}

	payload, err := json.Marshal(e.BuildRequest(in))
	if err != nil {
		return diagnose.Reply{}, fmt.Errorf("openai classify: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	start := time.Now()
	resp, err := e.httpc.Do(req)
	log.Printf("openai classify time: %d ms", time.Since(start).Milliseconds())
	if err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{Engine: e.Name(), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return diagnose.Reply{}, &diagnose.TransportError{
			Engine:     e.Name(),
			StatusCode: resp.StatusCode,
			Body:       util.TruncateBytes(bytes.TrimSpace(raw), 1024),
		}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return diagnose.Reply{}, &diagnose.TransportError{
			Engine: e.Name(),
			Body:   util.TruncateBytes(raw, 1024),
			Err:    fmt.Errorf("bad response body: %w", err),
		}
	}
	if len(out.Choices) == 0 {
		return diagnose.Reply{}, &diagnose.ExtractionError{Reason: diagnose.ReasonEmptyCompletion, Raw: string(raw)}
	}
	return diagnose.Reply{Text: out.Choices[0].Message.Content, Raw: raw}, nil
}
