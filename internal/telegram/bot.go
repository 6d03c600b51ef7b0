package telegram

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"symptom-checker/internal/auth"
)

const answerPrefix = "ans:"

type Bot struct {
	api     *tgbotapi.BotAPI
	s       sender
	authSvc *auth.Service
	dialog  Dialog
	// nil disables report attachments
	renderer PDFRenderer
	now      func() time.Time
}

func New(botToken string, authSvc *auth.Service, dialog Dialog, renderer PDFRenderer) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return &Bot{
		api:      api,
		s:        botAPISender{api: api},
		authSvc:  authSvc,
		dialog:   dialog,
		renderer: renderer,
		now:      time.Now,
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

// Publish sends text to chatID. The daily report job uses it.
func (b *Bot) Publish(chatID int64) func(ctx context.Context, summary string) error {
	return func(ctx context.Context, summary string) error {
		_, err := b.s.Send(tgbotapi.NewMessage(chatID, summary))
		return err
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
