package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"symptom-checker/internal/app"
	"symptom-checker/internal/config"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg := config.New()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	srv := NewDiagnosisMCPServer(a.Engine, a.Recorder)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "symptom-checker-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_session",
		Description: "Starts a symptom-checker dialogue and returns its session id and the action menu",
	}, srv.StartSession)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "handle_turn",
		Description: "Sends one patient utterance to a session and returns the next prompt, follow-up question or diagnosis",
	}, srv.HandleTurn)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Clears a session and archives its transcript",
	}, srv.ResetSession)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "patient_history",
		Description: "Returns the recorded turns of one patient, oldest first",
	}, srv.PatientHistory)

	log.Printf("Symptom checker MCP server ready (stdio)")
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
