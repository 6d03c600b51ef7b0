// Package diagnosis runs the symptom-checker dialogue: it collects a primary
// symptom and its duration, asks about correlated symptoms one at a time and
// concludes with a prediction from two independently trained classifiers.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"symptom-checker/internal/dataset"
	"symptom-checker/internal/severity"
	"symptom-checker/internal/storage"
)

// SymptomSpace is the column layout of the feature matrix.
type SymptomSpace interface {
	Has(symptom string) bool
	Encode(symptoms []string) []float64
	Columns() []string
}

type Predictor interface {
	Predict(vec []float64) (string, error)
}

type Ranker interface {
	Related(primary string) []string
}

// Reference is the symptom catalog.
type Reference interface {
	severity.Weigher
	Description(condition string) (string, bool)
	Precautions(condition string) ([4]string, bool)
}

type InfoProvider interface {
	Lookup(ctx context.Context, topic string) (string, error)
}

// Transcripts receives every message of a session. Archive closes one
// session's transcript and files it under the patient.
type Transcripts interface {
	AppendUser(sessionID, patient, content string)
	AppendAssistant(sessionID, patient, content string)
	Archive(sessionID string) bool
}

// Deps wires the engine. Info, Recorder and Transcripts are optional.
type Deps struct {
	Space       SymptomSpace
	Primary     Predictor
	Secondary   Predictor
	Ranker      Ranker
	Reference   Reference
	Info        InfoProvider
	Recorder    storage.Recorder
	Transcripts Transcripts
	Now         func() time.Time
}

// DefaultPatient names sessions started without a patient.
const DefaultPatient = "anonymous"

const (
	maxSuggestions = 5
	infoPrefix     = "tell me about"
)

const (
	msgAskSymptom      = "What symptom are you experiencing?"
	msgAskInfo         = "What disease or drug would you like information about? (Please type: Tell me about [disease/drug name])"
	msgUnknownSymptom  = "I'm sorry, but I don't have information about the symptom '%s'. Please try another symptom."
	msgDidYouMean      = " Did you mean: %s?"
	msgAskDays         = "For how many days have you been feeling %s?"
	msgDaysNotPositive = "Please enter a positive number of days."
	msgDaysInvalid     = "Please enter a valid number of days."
	msgAskAdditional   = "Are you also experiencing %s? (Yes/No)"
	msgYesNo           = "Please answer with 'Yes' or 'No'."
	msgInfoPrefix      = "Please start your query with 'Tell me about'"
	msgNoInfo          = "I'm sorry, but I couldn't find any information about %s."
	msgApology         = "I'm sorry, something went wrong while processing your message. Please try again."
)

var (
	diagnosisWords = map[string]bool{"1": true, "predict": true, "illness": true, "symptoms": true}
	infoWords      = map[string]bool{"2": true, "information": true, "disease": true, "drug": true}
)

type Engine struct {
	deps  Deps
	store *Store
}

func NewEngine(d Deps) (*Engine, error) {
	switch {
	case d.Space == nil:
		return nil, errors.New("diagnosis: symptom space is required")
	case d.Primary == nil || d.Secondary == nil:
		return nil, errors.New("diagnosis: both predictors are required")
	case d.Ranker == nil:
		return nil, errors.New("diagnosis: ranker is required")
	case d.Reference == nil:
		return nil, errors.New("diagnosis: reference catalog is required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{deps: d, store: NewStore()}, nil
}

// StartSession opens a new session and returns its id.
func (e *Engine) StartSession(patient string) string {
	sess := e.store.Create(patientOrDefault(patient), e.deps.Now())
	log.Printf("diagnosis: session %s started for %s", sess.state.ID, sess.state.Patient)
	return sess.state.ID
}

// EnsureSession returns id, creating the session under that id when it does
// not exist yet. Front ends with stable user ids use it instead of
// StartSession.
func (e *Engine) EnsureSession(id, patient string) string {
	sess, created := e.store.GetOrCreate(id, patientOrDefault(patient), e.deps.Now())
	if created {
		log.Printf("diagnosis: session %s started for %s", id, sess.state.Patient)
	}
	return id
}

// Session returns a copy of the session state.
func (e *Engine) Session(id string) (State, error) {
	sess, ok := e.store.Get(id)
	if !ok {
		return State{}, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return State{}, ErrSessionNotFound
	}
	return sess.state.clone(), nil
}

// ResetSession clears all accumulated state and archives the transcript.
func (e *Engine) ResetSession(id string) error {
	sess, ok := e.store.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}
	sess.clear()
	sess.state.UpdatedAt = e.deps.Now()
	if e.deps.Transcripts != nil {
		e.deps.Transcripts.Archive(id)
	}
	log.Printf("diagnosis: session %s reset", id)
	return nil
}

// ExpireIdle drops sessions idle for longer than ttl and archives their
// transcripts. It returns how many were dropped.
func (e *Engine) ExpireIdle(ttl time.Duration) int {
	removed := e.store.RemoveIdle(e.deps.Now().Add(-ttl))
	for _, st := range removed {
		if e.deps.Transcripts != nil {
			e.deps.Transcripts.Archive(st.ID)
		}
	}
	if len(removed) > 0 {
		log.Printf("diagnosis: expired %d idle sessions", len(removed))
	}
	return len(removed)
}

func (e *Engine) ActiveSessions() int { return e.store.Len() }

// HandleTurn feeds one utterance to the session. Input problems come back as
// a KindError result, never as an error; the only error is
// ErrSessionNotFound. Extra symptoms are normalized, unknown ones dropped,
// and added before the utterance is processed.
func (e *Engine) HandleTurn(ctx context.Context, id, utterance string, extra []string) (TurnResult, error) {
	sess, ok := e.store.Get(id)
	if !ok {
		return TurnResult{}, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return TurnResult{}, ErrSessionNotFound
	}

	backup := sess.state.clone()
	res, err := e.safeTurn(ctx, sess, utterance, e.knownSymptoms(extra))
	if err != nil {
		log.Printf("diagnosis: session %s turn failed in %s: %v", id, backup.Phase, err)
		sess.state = backup
		res = TurnResult{Kind: KindError, Message: msgApology, Error: &TurnError{Code: CodeInternal}}
	}
	sess.state.UpdatedAt = e.deps.Now()
	e.fill(&res, sess)
	e.audit(sess, utterance, res)
	return res, nil
}

func (e *Engine) safeTurn(ctx context.Context, sess *Session, utterance string, extra []string) (res TurnResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.turn(ctx, sess, utterance, extra)
}

func (e *Engine) turn(ctx context.Context, sess *Session, utterance string, extra []string) (TurnResult, error) {
	input := strings.TrimSpace(utterance)
	lower := strings.ToLower(input)
	st := &sess.state

	switch st.Phase {
	case PhaseInitial, PhaseChooseAction:
		st.Phase = PhaseChooseAction
		switch {
		case diagnosisWords[lower]:
			sess.startCycle()
			addAll(sess, extra)
			st.PrimaryChoice = ChoiceDiagnosis
			st.Phase = PhaseAskSymptom
			return prompt(msgAskSymptom), nil
		case infoWords[lower]:
			// extras only count inside a diagnosis cycle
			st.PrimaryChoice = ChoiceInfo
			st.Phase = PhaseAskInfo
			return prompt(msgAskInfo), nil
		default:
			return prompt(MenuMessage), nil
		}

	case PhaseAskSymptom:
		symptom := dataset.NormalizeSymptom(input)
		if symptom == "" || !e.deps.Space.Has(symptom) {
			msg := fmt.Sprintf(msgUnknownSymptom, lower)
			suggestions := e.Suggest(input)
			if len(suggestions) > 0 {
				msg += fmt.Sprintf(msgDidYouMean, strings.Join(suggestions, ", "))
			}
			addAll(sess, extra)
			return rejected(msg, ErrUnknownSymptom, suggestions...), nil
		}
		st.Primary = symptom
		sess.setPrimary(symptom)
		addAll(sess, extra)
		st.Phase = PhaseAskDays
		return prompt(fmt.Sprintf(msgAskDays, symptom)), nil

	case PhaseAskDays:
		addAll(sess, extra)
		days, err := strconv.Atoi(input)
		if err != nil {
			return rejected(msgDaysInvalid, ErrInvalidDuration), nil
		}
		if days <= 0 {
			return rejected(msgDaysNotPositive, ErrInvalidDuration), nil
		}
		st.Days = days
		st.Pending = nil
		for _, s := range e.deps.Ranker.Related(st.Primary) {
			if !sess.hasSymptom(s) {
				st.Pending = append(st.Pending, s)
			}
		}
		st.Phase = PhaseAskAdditional
		if len(st.Pending) == 0 {
			return e.conclude(sess)
		}
		return e.askNext(st), nil

	case PhaseAskAdditional:
		addAll(sess, extra)
		if lower != "yes" && lower != "no" {
			return rejected(msgYesNo, ErrInvalidYesNo), nil
		}
		if len(st.Pending) == 0 {
			return e.conclude(sess)
		}
		if lower == "yes" {
			sess.addSymptom(st.Pending[0])
		}
		st.Pending = st.Pending[1:]
		if len(st.Pending) == 0 {
			return e.conclude(sess)
		}
		return e.askNext(st), nil

	case PhaseAskInfo:
		if !strings.HasPrefix(lower, infoPrefix) {
			return rejected(msgInfoPrefix, ErrInvalidQuery), nil
		}
		topic := strings.TrimSpace(input[len(infoPrefix):])
		if topic == "" {
			return rejected(msgInfoPrefix, ErrInvalidQuery), nil
		}
		answer := e.lookup(ctx, topic)
		st.Phase = PhaseChooseAction
		st.PrimaryChoice = ChoiceNone
		return prompt(answer + "\n\n" + NextStepMessage), nil
	}
	return TurnResult{}, fmt.Errorf("session in unknown phase %q", st.Phase)
}

func (e *Engine) askNext(st *State) TurnResult {
	next := st.Pending[0]
	return followUp(fmt.Sprintf(msgAskAdditional, next), next, len(st.Pending))
}

// conclude predicts with both classifiers and ends the cycle.
func (e *Engine) conclude(sess *Session) (TurnResult, error) {
	st := &sess.state
	vec := e.deps.Space.Encode(st.Symptoms)
	first, err := e.deps.Primary.Predict(vec)
	if err != nil {
		return TurnResult{}, fmt.Errorf("primary prediction: %w", err)
	}
	second, err := e.deps.Secondary.Predict(vec)
	if err != nil {
		return TurnResult{}, fmt.Errorf("secondary prediction: %w", err)
	}
	assessment, err := severity.Assess(e.deps.Reference, st.Symptoms, st.Days)
	if err != nil {
		return TurnResult{}, fmt.Errorf("assess severity: %w", err)
	}
	report := buildReport(e.deps.Reference, first, second, st.Symptoms, st.Days, assessment)
	now := e.deps.Now()
	st.Diagnosis = report
	st.DiagnosisTime = &now
	st.Pending = nil
	st.Phase = PhaseChooseAction
	st.PrimaryChoice = ChoiceNone
	log.Printf("diagnosis: session %s concluded %q (%s, score %d, symptoms %v)",
		st.ID, report.Summary(), assessment.Band, assessment.Score, st.Symptoms)
	return TurnResult{
		Kind:    KindDiagnosis,
		Message: report.Text + "\n\n" + NextStepMessage,
	}, nil
}

func (e *Engine) lookup(ctx context.Context, topic string) string {
	if e.deps.Info == nil {
		return fmt.Sprintf(msgNoInfo, topic)
	}
	text, err := e.deps.Info.Lookup(ctx, topic)
	if err != nil {
		log.Printf("diagnosis: info lookup for %q failed: %v", topic, err)
		return fmt.Sprintf(msgNoInfo, topic)
	}
	return text
}

// Suggest lists up to five known symptoms containing the normalized input.
func (e *Engine) Suggest(input string) []string {
	needle := dataset.NormalizeSymptom(input)
	if needle == "" {
		return nil
	}
	var out []string
	for _, c := range e.deps.Space.Columns() {
		if strings.Contains(c, needle) {
			out = append(out, c)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

func (e *Engine) knownSymptoms(extra []string) []string {
	var out []string
	for _, s := range extra {
		n := dataset.NormalizeSymptom(s)
		if n != "" && e.deps.Space.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func addAll(sess *Session, symptoms []string) {
	for _, s := range symptoms {
		sess.addSymptom(s)
	}
}

// fill copies the session snapshot every result carries.
func (e *Engine) fill(res *TurnResult, sess *Session) {
	st := sess.state.clone()
	res.SessionID = st.ID
	res.Phase = st.Phase
	res.Symptoms = st.Symptoms
	if res.Symptoms == nil {
		res.Symptoms = []string{}
	}
	res.Diagnosis = st.Diagnosis
	res.DiagnosisTime = st.DiagnosisTime
	res.ShowMenu = st.Phase == PhaseChooseAction
	if res.ShowMenu {
		res.Options = MenuOptions()
	}
}

// audit writes the turn to the recorder and the transcript. Failures are
// logged only.
func (e *Engine) audit(sess *Session, utterance string, res TurnResult) {
	st := &sess.state
	if e.deps.Transcripts != nil {
		e.deps.Transcripts.AppendUser(st.ID, st.Patient, utterance)
		e.deps.Transcripts.AppendAssistant(st.ID, st.Patient, res.Message)
	}
	if e.deps.Recorder == nil {
		return
	}
	rec := storage.TurnRecord{
		Timestamp:    st.UpdatedAt,
		SessionID:    st.ID,
		Patient:      st.Patient,
		Symptoms:     append([]string{}, st.Symptoms...),
		Conversation: [2]string{utterance, res.Message},
		Concluded:    res.Kind == KindDiagnosis,
	}
	if st.Diagnosis != nil {
		summary := st.Diagnosis.Summary()
		rec.Diagnosis = &summary
		rec.Conditions = st.Diagnosis.ConditionNames()
		rec.Severity = string(st.Diagnosis.Severity.Band)
	}
	if st.DiagnosisTime != nil {
		ts := st.DiagnosisTime.UTC().Format(storage.TimestampLayout)
		rec.DiagnosisTime = &ts
	}
	if err := e.deps.Recorder.AppendTurn(rec); err != nil {
		log.Printf("diagnosis: failed to record turn for session %s: %v", st.ID, err)
	}
}

func patientOrDefault(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultPatient
	}
	return p
}
