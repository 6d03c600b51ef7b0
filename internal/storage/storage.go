package storage

import (
	"sort"
	"time"
)

// TimestampLayout is the key format of the history mapping.
const TimestampLayout = time.RFC3339

// TurnRecord is one audited dialogue turn: the user's input, the reply and a
// snapshot of the session after the turn. Diagnosis and DiagnosisTime stay
// nil until a session concludes.
type TurnRecord struct {
	Timestamp     time.Time `json:"-"`
	SessionID     string    `json:"session_id,omitempty"`
	Patient       string    `json:"patient"`
	Symptoms      []string  `json:"symptoms"`
	Diagnosis     *string   `json:"diagnosis"`
	DiagnosisTime *string   `json:"diagnosis_time"`
	Conversation  [2]string `json:"conversation"`
	Conditions    []string  `json:"conditions,omitempty"`
	Severity      string    `json:"severity,omitempty"`
	Concluded     bool      `json:"concluded,omitempty"`
}

// Turns maps a turn timestamp to every record written in that second.
type Turns map[string][]TurnRecord

func (t Turns) add(rec TurnRecord) {
	key := rec.Timestamp.UTC().Format(TimestampLayout)
	t[key] = append(t[key], rec)
}

// Records flattens t into chronological order.
func (t Turns) Records() []TurnRecord {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []TurnRecord
	for _, k := range keys {
		ts, err := time.Parse(TimestampLayout, k)
		for _, rec := range t[k] {
			if err == nil {
				rec.Timestamp = ts
			}
			out = append(out, rec)
		}
	}
	return out
}

// GroupByPatient returns each patient's records in chronological order.
func GroupByPatient(t Turns) map[string][]TurnRecord {
	out := make(map[string][]TurnRecord)
	for _, rec := range t.Records() {
		out[rec.Patient] = append(out[rec.Patient], rec)
	}
	return out
}

// Recorder persists the audit trail. Implementations must be safe for
// concurrent use and must only ever append.
type Recorder interface {
	AppendTurn(rec TurnRecord) error
	LoadTurns() (Turns, error)
}
