package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// LLMName: движок по умолчанию: "gpt" | "gemini".
	LLMName string `yaml:"llm_name"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiModel   string `yaml:"gemini_model"`

	PromptVersion string `yaml:"prompt_version"`
	PromptDir     string `yaml:"prompt_dir"`
	Extractor     string `yaml:"extractor"`
	// StructuredOutput включает response_format / ResponseMIMEType у движков.
	StructuredOutput bool `yaml:"structured_output"`

	// Длительности в файле читает UnmarshalYAML, как и в env: "90s" или "90".
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`

	DatabaseURL string `yaml:"database_url"`
	// AuditRetention: записи журнала старше удаляются; 0: хранить всё.
	AuditRetention time.Duration `yaml:"-"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`
}

func Defaults() *Config {
	return &Config{
		Port:           "8080",
		LLMName:        "gpt",
		OpenAIModel:    "gpt-4o",
		OpenAIBaseURL:  "https://api.openai.com/v1",
		GeminiModel:    "gemini-2.5-flash",
		PromptVersion:  "v2",
		Extractor:      "balanced",
		HTTPTimeout:    60 * time.Second,
		MaxUploadBytes: 10 << 20,
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load: defaults → YAML-файл из CONFIG_FILE (если задан) → переменные окружения.
// Fatal on a broken config, like the rest of startup.
func Load() *Config {
	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("bad %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.LLMName = strings.ToLower(getEnv("LLM_NAME", c.LLMName))
	if c.LLMName == "openai" {
		c.LLMName = "gpt"
	}

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)

	c.PromptVersion = getEnv("PROMPT_VERSION", c.PromptVersion)
	c.PromptDir = getEnv("PROMPT_DIR", c.PromptDir)
	c.Extractor = strings.ToLower(getEnv("EXTRACTOR", c.Extractor))
	if v := getEnv("STRUCTURED_OUTPUT", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRUCTURED_OUTPUT: %w", err)
		}
		c.StructuredOutput = b
	}

	if v := getEnv("HTTP_TIMEOUT", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}

	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	if v := getEnv("AUDIT_RETENTION", ""); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("AUDIT_RETENTION: %w", err)
		}
		c.AuditRetention = d
	}
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	return nil
}

// parseDuration accepts Go durations ("90s") or plain seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

type plainConfig Config

func (c *Config) UnmarshalYAML(n *yaml.Node) error {
	if err := n.Decode((*plainConfig)(c)); err != nil {
		return err
	}
	var d struct {
		HTTPTimeout    string `yaml:"http_timeout"`
		AuditRetention string `yaml:"audit_retention"`
	}
	if err := n.Decode(&d); err != nil {
		return err
	}
	if v := strings.TrimSpace(d.HTTPTimeout); v != "" {
		t, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("http_timeout: %w", err)
		}
		c.HTTPTimeout = t
	}
	if v := strings.TrimSpace(d.AuditRetention); v != "" {
		t, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("audit_retention: %w", err)
		}
		c.AuditRetention = t
	}
	return nil
}

// Validate требует ключ для движка по умолчанию.
func (c *Config) Validate() error {
	switch c.LLMName {
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required OPENAI_API_KEY for LLM_NAME=%s", c.LLMName)
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing required GEMINI_API_KEY for LLM_NAME=%s", c.LLMName)
		}
	default:
		return fmt.Errorf("unknown LLM_NAME %q; use gpt or gemini", c.LLMName)
	}
	switch c.Extractor {
	case "balanced", "regex":
	default:
		return fmt.Errorf("unknown EXTRACTOR %q; use balanced or regex", c.Extractor)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be >= 0")
	}
	if c.AuditRetention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must be >= 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}

// Engines lists engine names that have a key configured.
func (c *Config) Engines() []string {
	var out []string
	if c.OpenAIAPIKey != "" {
		out = append(out, "gpt")
	}
	if c.GeminiAPIKey != "" {
		out = append(out, "gemini")
	}
	return out
}
