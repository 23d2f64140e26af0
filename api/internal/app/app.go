// Package app wires configuration into a ready pipeline for the server and
// bot binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"paddy-doctor/api/internal/config"
	"paddy-doctor/api/internal/diagnose"
	"paddy-doctor/api/internal/diagnose/gemini"
	"paddy-doctor/api/internal/diagnose/openai"
	"paddy-doctor/api/internal/pipeline"
	"paddy-doctor/api/internal/prompt"
	"paddy-doctor/api/internal/store"
)

type App struct {
	Config   *config.Config
	Prompt   prompt.Prompt
	Pipeline *pipeline.Pipeline

	// nil, если журнал отправок выключен
	DB    *sql.DB
	Audit *store.SubmissionRepo
}

func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	p, err := prompt.Load(cfg.PromptVersion, cfg.PromptDir)
	if err != nil {
		return nil, err
	}
	log.Printf("prompt %s loaded (%s)", p.Version, p.Source)

	x, err := diagnose.NewExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Prompt: p,
		Pipeline: &pipeline.Pipeline{
			Engines:       BuildEngines(cfg, p.Text),
			Extractor:     x,
			PromptVersion: p.Version,
		},
	}

	dsn := store.ResolveDSN(cfg.DatabaseURL)
	if dsn == "" {
		log.Printf("audit log disabled: DATABASE_URL / POSTGRES_* not set")
		return a, nil
	}
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	log.Printf("db connected: %s", store.SafeDSNSummary(dsn))

	repo := store.NewSubmissionRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	a.DB, a.Audit = db, repo
	a.Pipeline.Recorder = repo
	return a, nil
}

// BuildEngines creates an engine for every provider that has a key.
func BuildEngines(cfg *config.Config, systemPrompt string) *diagnose.Engines {
	e := &diagnose.Engines{Default: cfg.LLMName}
	if cfg.OpenAIAPIKey != "" {
		oe := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, systemPrompt, cfg.HTTPTimeout)
		oe.JSONMode = cfg.StructuredOutput
		e.OpenAI = oe
	}
	if cfg.GeminiAPIKey != "" {
		ge := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, systemPrompt)
		ge.JSONMode = cfg.StructuredOutput
		e.Gemini = ge
	}
	return e
}

// Ping проверяет БД; без журнала всегда ok.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// StartRetention runs the hourly purge when AUDIT_RETENTION is set.
func (a *App) StartRetention(ctx context.Context) {
	if a.Audit == nil || a.Config.AuditRetention <= 0 {
		return
	}
	go a.Audit.RunRetention(ctx, time.Hour, a.Config.AuditRetention)
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
