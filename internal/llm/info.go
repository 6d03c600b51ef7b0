package llm

import (
	"context"
	"fmt"
	"strings"
)

const infoSystemPrompt = `You are a medical reference assistant. The user names a disease or a drug.
Reply in plain text with a short overview: what it is, typical symptoms or uses,
common side effects or complications, and when to see a doctor.
Do not give a diagnosis and keep the answer under 200 words.`

// InfoService answers "tell me about X" lookups with an LLM.
type InfoService struct {
	client Client
}

func NewInfoService(client Client) *InfoService {
	return &InfoService{client: client}
}

func (s *InfoService) Lookup(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("empty topic")
	}
	resp, err := s.client.Generate(ctx, []Message{
		{Role: RoleSystem, Content: infoSystemPrompt},
		{Role: RoleUser, Content: "Tell me about " + topic},
	})
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", topic, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("lookup %q: empty answer", topic)
	}
	return text, nil
}
