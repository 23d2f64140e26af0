package diagnose

import (
	"context"
	"testing"
)

type stubEngine struct{ name string }

func (s stubEngine) Name() string     { return s.name }
func (s stubEngine) GetModel() string { return s.name + "-model" }
func (s stubEngine) Classify(context.Context, ClassificationRequest) (Reply, error) {
	return Reply{}, nil
}

func TestEngines_GetEngine(t *testing.T) {
	engs := &Engines{Default: "gemini", OpenAI: stubEngine{"gpt"}, Gemini: stubEngine{"gemini"}}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"gpt", "gpt", false},
		{"OpenAI", "gpt", false},
		{" gemini ", "gemini", false},
		{"", "gemini", false},
		{"claude", "", true},
	}
	for _, tt := range tests {
		e, err := engs.GetEngine(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("GetEngine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && e.Name() != tt.want {
			t.Errorf("GetEngine(%q) = %s, want %s", tt.in, e.Name(), tt.want)
		}
	}

	if _, err := (&Engines{Default: "gpt"}).GetEngine(""); err == nil {
		t.Error("expected error for unconfigured engine")
	}
}
