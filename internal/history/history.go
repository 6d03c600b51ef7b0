// Package history keeps per-session chat transcripts and the per-patient
// archives they are closed into.
package history

import (
	"sync"
	"time"

	"symptom-checker/internal/llm"
)

// Archive is a transcript closed by a reset or a new chat.
type Archive struct {
	SessionID  string        `json:"session_id"`
	ArchivedAt time.Time     `json:"archived_at"`
	Messages   []llm.Message `json:"messages"`
}

type transcript struct {
	patient  string
	messages []llm.Message
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*transcript
	archives map[string][]Archive
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*transcript),
		archives: make(map[string][]Archive),
		now:      time.Now,
	}
}

func (m *Manager) AppendUser(sessionID, patient, content string) {
	m.append(sessionID, patient, llm.Message{Role: llm.RoleUser, Content: content})
}

func (m *Manager) AppendAssistant(sessionID, patient, content string) {
	m.append(sessionID, patient, llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) append(sessionID, patient string, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.sessions[sessionID]
	if !ok {
		tr = &transcript{}
		m.sessions[sessionID] = tr
	}
	// latest name wins; the archive is filed under it
	tr.patient = patient
	tr.messages = append(tr.messages, msg)
}

// Get returns a copy of the session's running transcript.
func (m *Manager) Get(sessionID string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tr, ok := m.sessions[sessionID]
	if !ok {
		return []llm.Message{}
	}
	return cloneMessages(tr.messages)
}

// Reset drops the running transcript without archiving it.
func (m *Manager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Archive moves the session's running transcript to its patient's archive
// list. Other sessions of the same patient are left alone.
// It reports false when there was nothing to archive.
func (m *Manager) Archive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.sessions[sessionID]
	if !ok || len(tr.messages) == 0 {
		return false
	}
	m.archives[tr.patient] = append(m.archives[tr.patient], Archive{
		SessionID:  sessionID,
		ArchivedAt: m.now(),
		Messages:   tr.messages,
	})
	delete(m.sessions, sessionID)
	return true
}

// Archives lists a patient's closed transcripts, oldest first.
func (m *Manager) Archives(patient string) []Archive {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.archives[patient]
	out := make([]Archive, len(src))
	for i, a := range src {
		out[i] = Archive{SessionID: a.SessionID, ArchivedAt: a.ArchivedAt, Messages: cloneMessages(a.Messages)}
	}
	return out
}

func cloneMessages(src []llm.Message) []llm.Message {
	out := make([]llm.Message, len(src))
	copy(out, src)
	return out
}
