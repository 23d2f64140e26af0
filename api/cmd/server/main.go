package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"paddy-doctor/api/internal/app"
	"paddy-doctor/api/internal/config"
	"paddy-doctor/api/internal/handle"
	"paddy-doctor/api/internal/httpserver"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()
	a.StartRetention(ctx)

	opt := handle.Options{
		Engines:        cfg.Engines(),
		DefaultEngine:  cfg.LLMName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if a.Audit != nil {
		opt.Ping = a.Ping
		opt.Audit = a.Audit
	}
	h := handle.New(a.Pipeline, opt)

	log.Printf("paddy-doctor: engines=%v default=%s prompt=%s extractor=%s",
		cfg.Engines(), cfg.LLMName, a.Prompt.Version, cfg.Extractor)
	srv := httpserver.New("0.0.0.0:"+cfg.Port, h.Routes())
	if err := httpserver.Run(ctx, srv); err != nil {
		log.Printf("server: %v", err)
		a.Close()
		os.Exit(1)
	}
}
