package diagnosis

import "time"

// Kind tags a TurnResult. Only the payload matching Kind is set.
type Kind string

const (
	KindPrompt    Kind = "prompt"
	KindFollowUp  Kind = "follow_up"
	KindDiagnosis Kind = "diagnosis"
	KindError     Kind = "error"
)

type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

type FollowUp struct {
	Symptom   string `json:"symptom"`
	Remaining int    `json:"remaining"`
}

type TurnError struct {
	Code        string   `json:"code"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type TurnResult struct {
	Kind          Kind       `json:"kind"`
	SessionID     string     `json:"session_id"`
	Message       string     `json:"message"`
	Phase         Phase      `json:"phase"`
	Symptoms      []string   `json:"symptoms"`
	Diagnosis     *Report    `json:"diagnosis"`
	DiagnosisTime *time.Time `json:"diagnosis_time"`
	ShowMenu      bool       `json:"show_menu"`
	Options       []Option   `json:"options,omitempty"`
	FollowUp      *FollowUp  `json:"follow_up,omitempty"`
	Error         *TurnError `json:"error,omitempty"`
}

const (
	MenuMessage     = "How can I assist you today?"
	NextStepMessage = "What would you like to do next?"
)

// MenuOptions is the two-option action menu shown in choose_action.
func MenuOptions() []Option {
	return []Option{
		{Text: "1. Predict your illness (based on symptoms)", Value: "1"},
		{Text: "2. Get information about a disease or drug", Value: "2"},
	}
}

func prompt(msg string) TurnResult {
	return TurnResult{Kind: KindPrompt, Message: msg}
}

func followUp(msg, symptom string, remaining int) TurnResult {
	return TurnResult{Kind: KindFollowUp, Message: msg, FollowUp: &FollowUp{Symptom: symptom, Remaining: remaining}}
}

func rejected(msg string, err error, suggestions ...string) TurnResult {
	return TurnResult{Kind: KindError, Message: msg, Error: &TurnError{Code: codeFor(err), Suggestions: suggestions}}
}
