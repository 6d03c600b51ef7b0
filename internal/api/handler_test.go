package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/history"
	"symptom-checker/internal/llm"
	"symptom-checker/internal/storage"
)

type fakeDialog struct {
	started []string
	lastID  string
	lastUtt string
	extra   []string
	resets  []string
}

func (f *fakeDialog) StartSession(patient string) string {
	f.started = append(f.started, patient)
	return "sess-1"
}

func (f *fakeDialog) HandleTurn(ctx context.Context, id, utterance string, extra []string) (diagnosis.TurnResult, error) {
	if id != "sess-1" {
		return diagnosis.TurnResult{}, diagnosis.ErrSessionNotFound
	}
	f.lastID, f.lastUtt, f.extra = id, utterance, extra
	return diagnosis.TurnResult{
		Kind:      diagnosis.KindPrompt,
		SessionID: id,
		Message:   "Please enter the symptom you are experiencing.",
		Phase:     diagnosis.PhaseAskSymptom,
		Symptoms:  []string{},
	}, nil
}

func (f *fakeDialog) ResetSession(id string) error {
	if id != "sess-1" {
		return diagnosis.ErrSessionNotFound
	}
	f.resets = append(f.resets, id)
	return nil
}

type memTurns struct {
	turns storage.Turns
	err   error
}

func (m memTurns) AppendTurn(storage.TurnRecord) error { return nil }
func (m memTurns) LoadTurns() (storage.Turns, error) { return m.turns, m.err }

type fakeArchives map[string][]history.Archive

func (f fakeArchives) Archives(patient string) []history.Archive { return f[patient] }

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newServer(d *fakeDialog, turns memTurns, db Pinger) http.Handler {
	archives := fakeArchives{"alice": {{
		ArchivedAt: time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: "itching"}},
	}}}
	return NewRouter(NewHandler(d, turns, archives, db))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateSession(t *testing.T) {
	d := &fakeDialog{}
	srv := newServer(d, memTurns{}, nil)

	w := do(t, srv, http.MethodPost, "/api/sessions", `{"patient":"alice"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp CreateSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess-1" || resp.Message != diagnosis.MenuMessage || len(resp.Options) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// empty body means the default patient
	if w := do(t, srv, http.MethodPost, "/api/sessions", ""); w.Code != http.StatusCreated {
		t.Fatalf("empty body: status %d", w.Code)
	}
	if len(d.started) != 2 || d.started[0] != "alice" || d.started[1] != "" {
		t.Fatalf("started: %v", d.started)
	}
}

func TestHandleTurn(t *testing.T) {
	d := &fakeDialog{}
	srv := newServer(d, memTurns{}, nil)

	w := do(t, srv, http.MethodPost, "/api/sessions/sess-1/turns", `{"utterance":"1","extra_symptoms":["skin rash"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if d.lastUtt != "1" || len(d.extra) != 1 || d.extra[0] != "skin rash" {
		t.Fatalf("dialog got %q %v", d.lastUtt, d.extra)
	}
	var res map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["kind"] != "prompt" || res["phase"] != string(diagnosis.PhaseAskSymptom) {
		t.Fatalf("body: %v", res)
	}
	if v, ok := res["diagnosis"]; !ok || v != nil {
		t.Fatalf("diagnosis should be an explicit null: %v", res)
	}
}

func TestHandleTurnErrors(t *testing.T) {
	srv := newServer(&fakeDialog{}, memTurns{}, nil)

	if w := do(t, srv, http.MethodPost, "/api/sessions/nope/turns", `{"utterance":"1"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: status %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/api/sessions/sess-1/turns", `{"utterance":`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", w.Code)
	}
	big := `{"utterance":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	if w := do(t, srv, http.MethodPost, "/api/sessions/sess-1/turns", big); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: status %d", w.Code)
	}
}

func TestResetSession(t *testing.T) {
	d := &fakeDialog{}
	srv := newServer(d, memTurns{}, nil)
	if w := do(t, srv, http.MethodPost, "/api/sessions/sess-1/reset", ""); w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(d.resets) != 1 {
		t.Fatalf("reset not forwarded")
	}
	if w := do(t, srv, http.MethodPost, "/api/sessions/other/reset", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: status %d", w.Code)
	}
}

func TestHistory(t *testing.T) {
	diag := "Fungal infection"
	turns := storage.Turns{
		"2024-01-15T10:00:00Z": {
			{Patient: "alice", Symptoms: []string{"itching"}, Conversation: [2]string{"itching", "For how many days?"}},
			{Patient: "bob", Conversation: [2]string{"1", "Please enter the symptom you are experiencing."}},
		},
		"2024-01-15T10:05:00Z": {
			{Patient: "alice", Diagnosis: &diag, Conversation: [2]string{"no", "Based on your symptoms..."}},
		},
	}
	srv := newServer(&fakeDialog{}, memTurns{turns: turns}, nil)

	w := do(t, srv, http.MethodGet, "/api/history", "")
	var grouped map[string][]storage.TurnRecord
	if err := json.Unmarshal(w.Body.Bytes(), &grouped); err != nil {
		t.Fatal(err)
	}
	if len(grouped["alice"]) != 2 || len(grouped["bob"]) != 1 {
		t.Fatalf("grouped: %+v", grouped)
	}

	w = do(t, srv, http.MethodGet, "/api/history?patient=carol", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("unknown patient: %s", w.Body.String())
	}

	srv = newServer(&fakeDialog{}, memTurns{err: errors.New("disk gone")}, nil)
	if w := do(t, srv, http.MethodGet, "/api/history", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
}

func TestArchives(t *testing.T) {
	srv := newServer(&fakeDialog{}, memTurns{}, nil)
	w := do(t, srv, http.MethodGet, "/api/patients/alice/archives", "")
	var list []history.Archive
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Messages[0].Content != "itching" {
		t.Fatalf("archives: %+v", list)
	}
	w = do(t, srv, http.MethodGet, "/api/patients/bob/archives", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty archives: %s", w.Body.String())
	}
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newServer(&fakeDialog{}, memTurns{}, nil)
	w := do(t, srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz: %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, "/readyz", "")
	if !strings.Contains(w.Body.String(), `"db":"disabled"`) {
		t.Fatalf("readyz without db: %s", w.Body.String())
	}

	srv = newServer(&fakeDialog{}, memTurns{}, fakePinger{err: errors.New("refused")})
	w = do(t, srv, http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "degraded") {
		t.Fatalf("readyz with failing db: %d %s", w.Code, w.Body.String())
	}
}
