package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"paddy-doctor/api/internal/app"
	"paddy-doctor/api/internal/config"
	"paddy-doctor/api/internal/handle"
	"paddy-doctor/api/internal/httpserver"
	"paddy-doctor/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		log.Fatal("missing required TELEGRAM_BOT_TOKEN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()
	a.StartRetention(ctx)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("authorized as @%s", bot.Self.UserName)

	r := &telegram.Router{
		Bot:           bot,
		Pipeline:      a.Pipeline,
		Engines:       cfg.Engines(),
		Default:       cfg.LLMName,
		MaxImageBytes: cfg.MaxUploadBytes,
	}

	// Тот же веб-интерфейс и /healthz, что и у сервера.
	opt := handle.Options{
		Engines:        cfg.Engines(),
		DefaultEngine:  cfg.LLMName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if a.Audit != nil {
		opt.Ping = a.Ping
		opt.Audit = a.Audit
	}
	routes := handle.New(a.Pipeline, opt).Routes()
	srv := httpserver.New("0.0.0.0:"+cfg.Port, routes)

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := telegram.WebhookPath(bot.Token)
		updates := make(chan tgbotapi.Update, bot.Buffer)
		routes.Handle(path, telegram.WebhookHandler(bot, updates)).Methods(http.MethodPost)

		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			log.Fatal(err)
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			log.Fatal(err)
		}
		go func() {
			for upd := range updates {
				r.HandleUpdate(upd)
			}
		}()
		log.Printf("webhook mode: updates on %s", path)
	} else {
		// polling требует снятого вебхука
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Printf("deleteWebhook: %v", err)
		}
		go telegram.RunPolling(ctx, bot, r.HandleUpdate)
		log.Printf("polling mode")
	}

	if err := httpserver.Run(ctx, srv); err != nil {
		log.Printf("server: %v", err)
		a.Close()
		os.Exit(1)
	}
}
