package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRecorder keeps the whole history as one JSON object and rewrites it on
// every append.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure history dir: %w", err)
	}
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) AppendTurn(rec TurnRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	turns, err := r.load()
	if err != nil {
		return err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	turns.add(rec)
	return r.write(turns)
}

func (r *FileRecorder) LoadTurns() (Turns, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// load treats a missing or empty file as empty history. A file that does not
// parse is moved aside to <path>.corrupt and history starts over.
func (r *FileRecorder) load() (Turns, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return Turns{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(data) == 0 {
		return Turns{}, nil
	}
	turns := Turns{}
	if err := json.Unmarshal(data, &turns); err != nil {
		backup := r.path + ".corrupt"
		log.Printf("history file %s is corrupt (%v), moving it to %s", r.path, err, backup)
		if err := os.Rename(r.path, backup); err != nil {
			return nil, fmt.Errorf("move corrupt history: %w", err)
		}
		return Turns{}, nil
	}
	return turns, nil
}

func (r *FileRecorder) write(turns Turns) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
