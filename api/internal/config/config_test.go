package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "LLM_NAME", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "PROMPT_VERSION", "PROMPT_DIR", "EXTRACTOR", "STRUCTURED_OUTPUT",
	"HTTP_TIMEOUT", "MAX_UPLOAD_BYTES", "DATABASE_URL", "AUDIT_RETENTION", "TELEGRAM_BOT_TOKEN", "WEBHOOK_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Errorf("LoadFrom(\"\") = %+v, want defaults", cfg)
	}
	if cfg.Validate() == nil {
		t.Error("defaults without a key must not validate")
	}
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
port: "9000"
llm_name: gemini
gemini_api_key: file-key
openai_model: gpt-4o-mini
prompt_version: v3
extractor: regex
http_timeout: 30s
max_upload_bytes: 1024
audit_retention: 720h
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("HTTP_TIMEOUT", "45")
	t.Setenv("STRUCTURED_OUTPUT", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, env should win", cfg.Port)
	}
	if cfg.LLMName != "gemini" || cfg.GeminiAPIKey != "file-key" || cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.PromptVersion != "v3" || cfg.Extractor != "regex" || cfg.MaxUploadBytes != 1024 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.StructuredOutput {
		t.Error("STRUCTURED_OUTPUT=true not applied")
	}
	if cfg.AuditRetention != 720*time.Hour {
		t.Errorf("AuditRetention = %v", cfg.AuditRetention)
	}
	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if got := cfg.Engines(); !reflect.DeepEqual(got, []string{"gemini"}) {
		t.Errorf("Engines() = %v", got)
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(bad, []byte("port: [unclosed"), 0o600)
	if _, err := LoadFrom(bad); err == nil {
		t.Error("expected error for bad yaml")
	}

	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	if _, err := LoadFrom(""); err == nil {
		t.Error("expected error for bad MAX_UPLOAD_BYTES")
	}
}

func TestLoadFrom_FileDurations(t *testing.T) {
	tests := []struct {
		name          string
		yml           string
		wantTimeout   time.Duration
		wantRetention time.Duration
		wantErr       bool
	}{
		{"plain seconds", "http_timeout: 60\naudit_retention: 24\n", 60 * time.Second, 24 * time.Second, false},
		{"go durations", "http_timeout: 90s\naudit_retention: 720h\n", 90 * time.Second, 720 * time.Hour, false},
		{"quoted seconds", "http_timeout: \"45\"\n", 45 * time.Second, 0, false},
		{"absent keeps defaults", "port: \"9000\"\n", 60 * time.Second, 0, false},
		{"bad timeout", "http_timeout: soon\n", 0, 0, true},
		{"bad retention", "audit_retention: forever\n", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yml), 0o600); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadFrom(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFrom() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.HTTPTimeout != tt.wantTimeout {
				t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, tt.wantTimeout)
			}
			if cfg.AuditRetention != tt.wantRetention {
				t.Errorf("AuditRetention = %v, want %v", cfg.AuditRetention, tt.wantRetention)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(c *Config)
		wantErr bool
	}{
		{"gpt with key", func(c *Config) { c.OpenAIAPIKey = "k" }, false},
		{"gpt without key", func(c *Config) {}, true},
		{"gemini without key", func(c *Config) { c.LLMName = "gemini"; c.OpenAIAPIKey = "k" }, true},
		{"unknown engine", func(c *Config) { c.LLMName = "llama"; c.OpenAIAPIKey = "k" }, true},
		{"unknown extractor", func(c *Config) { c.OpenAIAPIKey = "k"; c.Extractor = "greedy" }, true},
		{"negative retention", func(c *Config) { c.OpenAIAPIKey = "k"; c.AuditRetention = -time.Hour }, true},
		{"zero upload cap", func(c *Config) { c.OpenAIAPIKey = "k"; c.MaxUploadBytes = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mod(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFrom_OpenAIAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_NAME", "OpenAI")
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLMName != "gpt" {
		t.Errorf("LLMName = %q, want gpt", cfg.LLMName)
	}
}
