package llm

import (
	"testing"

	"symptom-checker/internal/config"
)

func TestFactoryCreateClient(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "sk-test", OpenaiModel: "gpt-3.5-turbo"}
	c, err := f.CreateClient(config.ProviderOpenAI)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("want *OpenAIClient, got %T", c)
	}
	c, err = f.CreateClient(config.ProviderNone)
	if err != nil || c != nil {
		t.Fatalf("none: %v %v", c, err)
	}
	if _, err := (&Factory{}).CreateClient(config.ProviderOpenAI); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := f.CreateClient("bogus"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
