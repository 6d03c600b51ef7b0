// Package api exposes the diagnosis dialogue over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/history"
	"symptom-checker/internal/storage"
)

// Dialog is the engine surface the HTTP API needs.
type Dialog interface {
	StartSession(patient string) string
	HandleTurn(ctx context.Context, id, utterance string, extra []string) (diagnosis.TurnResult, error)
	ResetSession(id string) error
}

type ArchiveReader interface {
	Archives(patient string) []history.Archive
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	dialog   Dialog
	turns    storage.Recorder
	archives ArchiveReader
	// nil when history is kept in a file
	db Pinger
}

func NewHandler(dialog Dialog, turns storage.Recorder, archives ArchiveReader, db Pinger) *Handler {
	return &Handler{dialog: dialog, turns: turns, archives: archives, db: db}
}

type CreateSessionRequest struct {
	Patient string `json:"patient"`
}

type CreateSessionResponse struct {
	SessionID string             `json:"session_id"`
	Message   string             `json:"message"`
	Options   []diagnosis.Option `json:"options"`
}

type TurnRequest struct {
	Utterance     string   `json:"utterance"`
	ExtraSymptoms []string `json:"extra_symptoms"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id := h.dialog.StartSession(req.Patient)
	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: id,
		Message:   diagnosis.MenuMessage,
		Options:   diagnosis.MenuOptions(),
	})
}

func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id := chi.URLParam(r, "id")
	res, err := h.dialog.HandleTurn(r.Context(), id, req.Utterance, req.ExtraSymptoms)
	if errors.Is(err, diagnosis.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Printf("api: turn for session %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dialog.ResetSession(id); err != nil {
		if errors.Is(err, diagnosis.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "reset"})
}

// History returns the audit trail grouped by patient, or a single patient's
// records when ?patient= is given.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	turns, err := h.turns.LoadTurns()
	if err != nil {
		log.Printf("api: load history: %v", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	grouped := storage.GroupByPatient(turns)
	if p := r.URL.Query().Get("patient"); p != "" {
		recs := grouped[p]
		if recs == nil {
			recs = []storage.TurnRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (h *Handler) Archives(w http.ResponseWriter, r *http.Request) {
	list := h.archives.Archives(chi.URLParam(r, "patient"))
	if list == nil {
		list = []history.Archive{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"db":     "unhealthy: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
}

// decode accepts an empty body as the zero request.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
