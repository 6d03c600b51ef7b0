package telegram

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/report"
)

const (
	msgNotAllowed = "Sorry, this bot is available to registered patients only."
	msgReset      = "Your session has been reset."
	msgFailed     = "Sorry, something went wrong."
	msgHelp       = "Send /start to begin, /reset to start over. Answer the questions with text or with the buttons."
)

func sessionID(userID int64) string {
	return "tg-" + strconv.FormatInt(userID, 10)
}

func patientName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return sessionID(u.ID)
}

// handleIncomingMessage
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.authSvc.IsAllowed(msg.From.ID) {
		log.Printf("Unauthorized access attempt by user ID: %d, username: @%s", msg.From.ID, msg.From.UserName)
		b.sendMessage(msg.Chat.ID, msgNotAllowed)
		return
	}
	log.Printf("Incoming message from %d (@%s): %q", msg.From.ID, msg.From.UserName, msg.Text)
	id := b.dialog.EnsureSession(sessionID(msg.From.ID), patientName(msg.From))

	if msg.IsCommand() {
		b.handleCommand(msg, id)
		return
	}
	b.converse(ctx, msg.Chat.ID, id, patientName(msg.From), msg.Text)
}

// handleCommand
func (b *Bot) handleCommand(msg *tgbotapi.Message, id string) {
	switch msg.Command() {
	case "start":
		b.sendResult(msg.Chat.ID, patientName(msg.From), diagnosis.TurnResult{
			Message:  diagnosis.MenuMessage,
			ShowMenu: true,
			Options:  diagnosis.MenuOptions(),
		})
	case "reset":
		if err := b.dialog.ResetSession(id); err != nil {
			log.Printf("failed to reset session %s: %v", id, err)
			b.sendMessage(msg.Chat.ID, msgFailed)
			return
		}
		b.sendResult(msg.Chat.ID, patientName(msg.From), diagnosis.TurnResult{
			Message:  msgReset + "\n\n" + diagnosis.MenuMessage,
			ShowMenu: true,
			Options:  diagnosis.MenuOptions(),
		})
	default:
		b.sendMessage(msg.Chat.ID, msgHelp)
	}
}

// handleCallback answers inline keyboard presses as if the value was typed.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// every press is acknowledged or the client keeps the button spinning
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("failed to answer callback %s: %v", cb.ID, err)
	}
	if cb.Message == nil || !strings.HasPrefix(cb.Data, answerPrefix) {
		return
	}
	if !b.authSvc.IsAllowed(cb.From.ID) {
		b.sendMessage(cb.Message.Chat.ID, msgNotAllowed)
		return
	}
	id := b.dialog.EnsureSession(sessionID(cb.From.ID), patientName(cb.From))
	b.converse(ctx, cb.Message.Chat.ID, id, patientName(cb.From), strings.TrimPrefix(cb.Data, answerPrefix))
}

func (b *Bot) converse(ctx context.Context, chatID int64, id, patient, text string) {
	res, err := b.dialog.HandleTurn(ctx, id, text, nil)
	if errors.Is(err, diagnosis.ErrSessionNotFound) {
		// expired between EnsureSession and the turn
		b.dialog.EnsureSession(id, patient)
		res, err = b.dialog.HandleTurn(ctx, id, text, nil)
	}
	if err != nil {
		log.Printf("turn for session %s failed: %v", id, err)
		b.sendMessage(chatID, msgFailed)
		return
	}
	b.sendResult(chatID, patient, res)
}

func (b *Bot) sendResult(chatID int64, patient string, res diagnosis.TurnResult) {
	out := tgbotapi.NewMessage(chatID, res.Message)
	if kb, ok := keyboardFor(res); ok {
		out.ReplyMarkup = kb
	}
	if _, err := b.s.Send(out); err != nil {
		log.Printf("failed to send message: %v", err)
		return
	}
	if res.Kind == diagnosis.KindDiagnosis && res.Diagnosis != nil && b.renderer != nil {
		b.sendReport(chatID, patient, res)
	}
}

func keyboardFor(res diagnosis.TurnResult) (tgbotapi.InlineKeyboardMarkup, bool) {
	switch {
	case res.Kind == diagnosis.KindFollowUp:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes", answerPrefix+"yes"),
				tgbotapi.NewInlineKeyboardButtonData("No", answerPrefix+"no"),
			),
		), true
	case res.ShowMenu && len(res.Options) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(res.Options))
		for _, o := range res.Options {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(o.Text, answerPrefix+o.Value),
			))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...), true
	}
	return tgbotapi.InlineKeyboardMarkup{}, false
}

func (b *Bot) sendReport(chatID int64, patient string, res diagnosis.TurnResult) {
	at := b.now()
	if res.DiagnosisTime != nil {
		at = *res.DiagnosisTime
	}
	data, err := b.renderer.Render(patient, res.Diagnosis, at)
	if err != nil {
		log.Printf("failed to render report for chat %d: %v", chatID, err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: report.FileName(at), Bytes: data})
	doc.Caption = "Diagnosis report"
	if _, err := b.s.Send(doc); err != nil {
		log.Printf("failed to send report: %v", err)
	}
}
