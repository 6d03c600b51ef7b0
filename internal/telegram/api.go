package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"symptom-checker/internal/diagnosis"
)

// sender is the slice of the Bot API the handlers need; tests swap it out.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	// Request is for calls that do not return a Message, e.g. callback answers.
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

func (s botAPISender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return s.api.Request(c)
}

// Dialog is the part of the diagnosis engine the bot drives.
type Dialog interface {
	EnsureSession(id, patient string) string
	HandleTurn(ctx context.Context, id, utterance string, extra []string) (diagnosis.TurnResult, error)
	ResetSession(id string) error
}

// PDFRenderer turns a concluded report into a document.
type PDFRenderer interface {
	Render(patient string, rep *diagnosis.Report, at time.Time) ([]byte, error)
}
