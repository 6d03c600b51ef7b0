package diagnosis

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseInitial       Phase = "initial"
	PhaseChooseAction  Phase = "choose_action"
	PhaseAskSymptom    Phase = "ask_symptom"
	PhaseAskInfo       Phase = "ask_info"
	PhaseAskDays       Phase = "ask_days"
	PhaseAskAdditional Phase = "ask_additional"
)

// Choice is the menu option picked in choose_action.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceDiagnosis
	ChoiceInfo
)

// State is everything a session remembers between turns.
type State struct {
	ID            string     `json:"id"`
	Patient       string     `json:"patient"`
	Phase         Phase      `json:"phase"`
	PrimaryChoice Choice     `json:"primary_choice"`
	Primary       string     `json:"primary,omitempty"`
	Symptoms      []string   `json:"symptoms"`
	Pending       []string   `json:"pending"`
	Days          int        `json:"days,omitempty"`
	Diagnosis     *Report    `json:"diagnosis"`
	DiagnosisTime *time.Time `json:"diagnosis_time"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s State) clone() State {
	out := s
	out.Symptoms = append([]string(nil), s.Symptoms...)
	out.Pending = append([]string(nil), s.Pending...)
	if s.DiagnosisTime != nil {
		t := *s.DiagnosisTime
		out.DiagnosisTime = &t
	}
	return out
}

// Session guards one State. mu is held for the whole of a turn, so turns on
// the same session run one after another in arrival order.
type Session struct {
	mu     sync.Mutex
	closed bool
	state  State
}

// clear returns the session to initial, keeping identity fields.
func (s *Session) clear() {
	s.state = State{
		ID:        s.state.ID,
		Patient:   s.state.Patient,
		Phase:     PhaseInitial,
		CreatedAt: s.state.CreatedAt,
		UpdatedAt: s.state.UpdatedAt,
	}
}

// startCycle drops everything left over from a previous diagnosis.
func (s *Session) startCycle() {
	s.state.Primary = ""
	s.state.Symptoms = nil
	s.state.Pending = nil
	s.state.Days = 0
	s.state.Diagnosis = nil
	s.state.DiagnosisTime = nil
}

// addSymptom appends symptom unless it is already confirmed.
func (s *Session) addSymptom(symptom string) {
	for _, have := range s.state.Symptoms {
		if have == symptom {
			return
		}
	}
	s.state.Symptoms = append(s.state.Symptoms, symptom)
}

// setPrimary puts symptom first in the confirmed list, moving it there if an
// extra already added it.
func (s *Session) setPrimary(symptom string) {
	out := make([]string, 0, len(s.state.Symptoms)+1)
	out = append(out, symptom)
	for _, have := range s.state.Symptoms {
		if have != symptom {
			out = append(out, have)
		}
	}
	s.state.Symptoms = out
}

func (s *Session) hasSymptom(symptom string) bool {
	for _, have := range s.state.Symptoms {
		if have == symptom {
			return true
		}
	}
	return false
}
