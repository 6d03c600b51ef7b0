package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"symptom-checker/internal/auth"
	"symptom-checker/internal/diagnosis"
)

type fakeSender struct {
	sent   []string
	kbs    []any
	docs   []tgbotapi.DocumentConfig
	acks   []string
	ackErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.sent = append(f.sent, m.Text)
		f.kbs = append(f.kbs, m.ReplyMarkup)
	case tgbotapi.DocumentConfig:
		f.docs = append(f.docs, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.acks = append(f.acks, cb.CallbackQueryID)
	}
	if f.ackErr != nil {
		return nil, f.ackErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type turnCall struct {
	id, text string
}

type fakeDialog struct {
	ensured []string
	turns   []turnCall
	resets  []string
	results []diagnosis.TurnResult
	err     error
}

func (f *fakeDialog) EnsureSession(id, patient string) string {
	f.ensured = append(f.ensured, id+"/"+patient)
	return id
}

func (f *fakeDialog) HandleTurn(ctx context.Context, id, utterance string, extra []string) (diagnosis.TurnResult, error) {
	f.turns = append(f.turns, turnCall{id: id, text: utterance})
	if f.err != nil {
		return diagnosis.TurnResult{}, f.err
	}
	if len(f.results) == 0 {
		return diagnosis.TurnResult{Kind: diagnosis.KindPrompt, Message: "ok"}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeDialog) ResetSession(id string) error {
	f.resets = append(f.resets, id)
	return nil
}

type fakeRenderer struct {
	patient string
	at      time.Time
	err     error
}

func (f *fakeRenderer) Render(patient string, rep *diagnosis.Report, at time.Time) ([]byte, error) {
	f.patient, f.at = patient, at
	return []byte("%PDF-1.4"), f.err
}

func newTestBot(d *fakeDialog, allowed ...int64) (*Bot, *fakeSender) {
	fs := &fakeSender{}
	return &Bot{
		s:       fs,
		authSvc: auth.New(allowed),
		dialog:  d,
		now:     func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) },
	}, fs
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return msg
}

func TestUnauthorizedUserIsRejected(t *testing.T) {
	d := &fakeDialog{}
	b, fs := newTestBot(d, 1)
	b.handleIncomingMessage(context.Background(), textMessage(42, "itching"))
	if len(fs.sent) != 1 || fs.sent[0] != msgNotAllowed {
		t.Fatalf("unexpected sent: %+v", fs.sent)
	}
	if len(d.turns) != 0 || len(d.ensured) != 0 {
		t.Fatalf("dialog must not be touched: %+v", d)
	}
}

func TestMessageDrivesPerUserSession(t *testing.T) {
	d := &fakeDialog{results: []diagnosis.TurnResult{{Kind: diagnosis.KindPrompt, Message: "For how many days?"}}}
	b, fs := newTestBot(d)
	b.handleIncomingMessage(context.Background(), textMessage(42, "itching"))

	if len(d.turns) != 1 || d.turns[0].id != "tg-42" || d.turns[0].text != "itching" {
		t.Fatalf("turns: %+v", d.turns)
	}
	if d.ensured[0] != "tg-42/alice" {
		t.Fatalf("ensured: %v", d.ensured)
	}
	if len(fs.sent) != 1 || fs.sent[0] != "For how many days?" {
		t.Fatalf("sent: %+v", fs.sent)
	}
	if fs.kbs[0] != nil {
		t.Fatalf("plain prompt should have no keyboard: %+v", fs.kbs[0])
	}
}

func TestFollowUpGetsYesNoKeyboard(t *testing.T) {
	d := &fakeDialog{results: []diagnosis.TurnResult{{
		Kind:     diagnosis.KindFollowUp,
		Message:  "Are you experiencing skin_rash?",
		FollowUp: &diagnosis.FollowUp{Symptom: "skin_rash", Remaining: 2},
	}}}
	b, fs := newTestBot(d)
	b.handleIncomingMessage(context.Background(), textMessage(42, "3"))

	kb, ok := fs.kbs[0].(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard: %+v", fs.kbs[0])
	}
	if data := *kb.InlineKeyboard[0][0].CallbackData; data != "ans:yes" {
		t.Fatalf("yes button data: %q", data)
	}
}

func TestCallbackIsTreatedAsAnswer(t *testing.T) {
	d := &fakeDialog{}
	b, _ := newTestBot(d)
	cb := &tgbotapi.CallbackQuery{
		From:    &tgbotapi.User{ID: 7, FirstName: "Bob"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "ans:no",
	}
	b.handleCallback(context.Background(), cb)
	if len(d.turns) != 1 || d.turns[0].text != "no" || d.turns[0].id != "tg-7" {
		t.Fatalf("turns: %+v", d.turns)
	}
	if d.ensured[0] != "tg-7/Bob" {
		t.Fatalf("patient name: %v", d.ensured)
	}

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{From: cb.From, Message: cb.Message, Data: "other"})
	if len(d.turns) != 1 {
		t.Fatalf("foreign callback data must be ignored")
	}
}

func TestCallbackPressesAreAcknowledged(t *testing.T) {
	d := &fakeDialog{}
	b, fs := newTestBot(d, 7)
	from := &tgbotapi.User{ID: 7, UserName: "bob"}
	chat := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}}

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "q1", From: from, Message: chat, Data: "ans:yes"})
	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "q2", From: from, Message: chat, Data: "other"})
	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "q3", From: &tgbotapi.User{ID: 8}, Message: chat, Data: "ans:no"})

	if len(fs.acks) != 3 || fs.acks[0] != "q1" || fs.acks[1] != "q2" || fs.acks[2] != "q3" {
		t.Fatalf("acks: %v", fs.acks)
	}
	if len(d.turns) != 1 || d.turns[0].text != "yes" {
		t.Fatalf("turns: %+v", d.turns)
	}
}

func TestCallbackAckFailureStillAnswers(t *testing.T) {
	d := &fakeDialog{}
	b, fs := newTestBot(d)
	fs.ackErr = errors.New("query is too old")
	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 7, UserName: "bob"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "ans:no",
	})
	if len(d.turns) != 1 || len(fs.sent) != 1 {
		t.Fatalf("turns=%+v sent=%v", d.turns, fs.sent)
	}
}

func TestStartShowsMenuAndResetClearsSession(t *testing.T) {
	d := &fakeDialog{}
	b, fs := newTestBot(d)
	b.handleIncomingMessage(context.Background(), textMessage(42, "/start"))
	b.handleIncomingMessage(context.Background(), textMessage(42, "/reset"))

	if len(d.turns) != 0 {
		t.Fatalf("commands must not be fed to the dialogue: %+v", d.turns)
	}
	if len(d.resets) != 1 || d.resets[0] != "tg-42" {
		t.Fatalf("resets: %v", d.resets)
	}
	if len(fs.sent) != 2 || fs.sent[0] != diagnosis.MenuMessage || !strings.HasPrefix(fs.sent[1], msgReset) {
		t.Fatalf("sent: %+v", fs.sent)
	}
	kb, ok := fs.kbs[0].(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 2 || *kb.InlineKeyboard[1][0].CallbackData != "ans:2" {
		t.Fatalf("menu keyboard: %+v", fs.kbs[0])
	}
}

func TestDiagnosisAttachesReport(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	rep := &diagnosis.Report{Conditions: []diagnosis.Condition{{Name: "Fungal infection"}}}
	d := &fakeDialog{results: []diagnosis.TurnResult{{
		Kind:          diagnosis.KindDiagnosis,
		Message:       "Based on your symptoms, you may have Fungal infection.",
		Diagnosis:     rep,
		DiagnosisTime: &at,
		ShowMenu:      true,
		Options:       diagnosis.MenuOptions(),
	}}}
	b, fs := newTestBot(d)
	r := &fakeRenderer{}
	b.renderer = r
	b.handleIncomingMessage(context.Background(), textMessage(42, "no"))

	if len(fs.docs) != 1 {
		t.Fatalf("want one document, got %d", len(fs.docs))
	}
	file, ok := fs.docs[0].File.(tgbotapi.FileBytes)
	if !ok || file.Name != "diagnosis_20240115_103000.pdf" {
		t.Fatalf("document: %+v", fs.docs[0].File)
	}
	if r.patient != "alice" || !r.at.Equal(at) {
		t.Fatalf("renderer got %q at %v", r.patient, r.at)
	}
}

func TestRenderFailureStillSendsText(t *testing.T) {
	d := &fakeDialog{results: []diagnosis.TurnResult{{Kind: diagnosis.KindDiagnosis, Message: "done", Diagnosis: &diagnosis.Report{}}}}
	b, fs := newTestBot(d)
	b.renderer = &fakeRenderer{err: errors.New("no font")}
	b.handleIncomingMessage(context.Background(), textMessage(42, "no"))
	if len(fs.sent) != 1 || len(fs.docs) != 0 {
		t.Fatalf("sent=%v docs=%d", fs.sent, len(fs.docs))
	}
}

func TestTurnErrorSendsApology(t *testing.T) {
	d := &fakeDialog{err: errors.New("boom")}
	b, fs := newTestBot(d)
	b.handleIncomingMessage(context.Background(), textMessage(42, "hello"))
	if len(fs.sent) != 1 || fs.sent[0] != msgFailed {
		t.Fatalf("sent: %+v", fs.sent)
	}
}

func TestPublishSendsSummary(t *testing.T) {
	b, fs := newTestBot(&fakeDialog{})
	if err := b.Publish(99)(context.Background(), "Daily report"); err != nil {
		t.Fatal(err)
	}
	if len(fs.sent) != 1 || fs.sent[0] != "Daily report" {
		t.Fatalf("sent: %+v", fs.sent)
	}
}
