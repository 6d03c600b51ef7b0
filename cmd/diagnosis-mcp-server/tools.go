package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/storage"
)

// StartSessionParams opens a dialogue.
type StartSessionParams struct {
	Patient string `json:"patient,omitempty" mcp:"patient name recorded in the audit trail (default: anonymous)"`
}

// HandleTurnParams feeds one utterance to a session.
type HandleTurnParams struct {
	SessionID     string   `json:"session_id" mcp:"id returned by start_session"`
	Utterance     string   `json:"utterance" mcp:"what the patient said: a menu choice, a symptom, a number of days, yes/no or 'tell me about <topic>'"`
	ExtraSymptoms []string `json:"extra_symptoms,omitempty" mcp:"symptoms to add to the session before the utterance is processed"`
}

type ResetSessionParams struct {
	SessionID string `json:"session_id" mcp:"id returned by start_session"`
}

type PatientHistoryParams struct {
	Patient string `json:"patient" mcp:"patient name"`
}

type dialog interface {
	StartSession(patient string) string
	HandleTurn(ctx context.Context, id, utterance string, extra []string) (diagnosis.TurnResult, error)
	ResetSession(id string) error
}

// DiagnosisMCPServer exposes the dialogue engine as MCP tools.
type DiagnosisMCPServer struct {
	engine dialog
	turns  storage.Recorder
}

func NewDiagnosisMCPServer(engine dialog, turns storage.Recorder) *DiagnosisMCPServer {
	return &DiagnosisMCPServer{engine: engine, turns: turns}
}

func (s *DiagnosisMCPServer) StartSession(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[StartSessionParams]) (*mcp.CallToolResultFor[any], error) {
	id := s.engine.StartSession(params.Arguments.Patient)
	log.Printf("MCP Server: started session %s", id)
	return jsonResult(map[string]any{
		"session_id": id,
		"message":    diagnosis.MenuMessage,
		"options":    diagnosis.MenuOptions(),
	}, map[string]any{"session_id": id})
}

func (s *DiagnosisMCPServer) HandleTurn(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[HandleTurnParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	res, err := s.engine.HandleTurn(ctx, args.SessionID, args.Utterance, args.ExtraSymptoms)
	if err != nil {
		return errorResult(fmt.Sprintf("Turn failed for session %q: %v", args.SessionID, err)), nil
	}
	return jsonResult(res, map[string]any{
		"session_id": res.SessionID,
		"kind":       string(res.Kind),
		"phase":      string(res.Phase),
	})
}

func (s *DiagnosisMCPServer) ResetSession(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ResetSessionParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.SessionID
	if err := s.engine.ResetSession(id); err != nil {
		return errorResult(fmt.Sprintf("Reset failed for session %q: %v", id, err)), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Session %s reset. %s", id, diagnosis.MenuMessage)},
		},
	}, nil
}

func (s *DiagnosisMCPServer) PatientHistory(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[PatientHistoryParams]) (*mcp.CallToolResultFor[any], error) {
	turns, err := s.turns.LoadTurns()
	if err != nil {
		return errorResult(fmt.Sprintf("History unavailable: %v", err)), nil
	}
	recs := storage.GroupByPatient(turns)[params.Arguments.Patient]
	if recs == nil {
		recs = []storage.TurnRecord{}
	}
	return jsonResult(recs, map[string]any{"count": len(recs)})
}

func jsonResult(v any, meta map[string]any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
		Meta: meta,
	}, nil
}

func errorResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
