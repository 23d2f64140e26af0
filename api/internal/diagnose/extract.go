package diagnose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"paddy-doctor/api/internal/util"
)

// Режимы поиска JSON-фрагмента в ответе модели.
const (
	ModeBalanced = "balanced"
	ModeRegex    = "regex"
)

var requiredKeys = []string{"disease_name", "confidence_score", "next_steps"}

// Extractor pulls the structured payload out of a completion's text.
type Extractor struct {
	Mode string
}

func NewExtractor(mode string) (*Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeBalanced:
		return &Extractor{Mode: ModeBalanced}, nil
	case ModeRegex:
		return &Extractor{Mode: ModeRegex}, nil
	default:
		return nil, fmt.Errorf("unknown extractor mode %q; use %q or %q", mode, ModeBalanced, ModeRegex)
	}
}

// Fragment returns the candidate JSON fragment, or "{}" when there is none.
func (x *Extractor) Fragment(text string) (string, bool) {
	var (
		frag string
		ok   bool
	)
	if x != nil && x.Mode == ModeRegex {
		frag, ok = util.FirstBracedLazy(text)
	} else {
		frag, ok = util.FirstJSONObject(text)
	}
	if !ok {
		return "{}", false
	}
	return frag, true
}

// Extract turns the model's text into a fully populated result or an *ExtractionError.
func (x *Extractor) Extract(text string) (ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ClassificationResult{}, &ExtractionError{Reason: ReasonEmptyCompletion, Raw: text}
	}

	frag, found := x.Fragment(text)
	obj, err := decodeObject(frag)
	if err != nil {
		return ClassificationResult{}, &ExtractionError{Reason: ReasonMalformedJSON, Raw: text, Err: err}
	}
	if !found {
		return ClassificationResult{}, &ExtractionError{Reason: ReasonNoJSON, Raw: text}
	}

	vals := make(map[string]string, len(requiredKeys))
	for _, k := range requiredKeys {
		v, ok := obj[k]
		if !ok || v == nil {
			return ClassificationResult{}, &ExtractionError{Reason: ReasonMissingKey, Key: k, Raw: text}
		}
		s, ok := scalarText(k, v)
		if !ok {
			return ClassificationResult{}, &ExtractionError{Reason: ReasonWrongType, Key: k, Raw: text}
		}
		vals[k] = s
	}

	return ClassificationResult{
		DiseaseName:     vals["disease_name"],
		ConfidenceScore: vals["confidence_score"],
		NextSteps:       vals["next_steps"],
		Present:         true,
	}, nil
}

func decodeObject(frag string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(frag)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after object")
	}
	return obj, nil
}

// confidence_score may come as a number; the other fields must be strings.
func scalarText(key string, v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		if key == "confidence_score" {
			return t.String(), true
		}
	}
	return "", false
}
