package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"symptom-checker/internal/app"
	"symptom-checker/internal/auth"
	"symptom-checker/internal/config"
	"symptom-checker/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.TelegramBotToken == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	authSvc := auth.New(cfg.AllowedUsers)

	var renderer telegram.PDFRenderer
	if a.Renderer != nil {
		renderer = a.Renderer
	}
	bot, err := telegram.New(cfg.TelegramBotToken, authSvc, a.Engine, renderer)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	var publish func(ctx context.Context, summary string) error
	if cfg.ReportChatID != 0 {
		publish = bot.Publish(cfg.ReportChatID)
	}
	sched := a.Scheduler(publish)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	bot.Start(ctx)
}
