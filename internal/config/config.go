package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
	ProviderNone   LLMProvider = "none"
)

type HistoryBackend string

const (
	BackendFile     HistoryBackend = "file"
	BackendPostgres HistoryBackend = "postgres"
)

type Config struct {
	// Feature matrix
	TrainingPath string `env:"TRAINING_DATA_PATH" envDefault:"data/Training.csv"`
	TestingPath  string `env:"TESTING_DATA_PATH" envDefault:"data/Testing.csv"`
	LabelColumn  string `env:"LABEL_COLUMN" envDefault:"prognosis"`

	// Reference tables
	SeverityPath    string `env:"SEVERITY_PATH" envDefault:"data/symptom_severity.csv"`
	DescriptionPath string `env:"DESCRIPTION_PATH" envDefault:"data/symptom_description.csv"`
	PrecautionPath  string `env:"PRECAUTION_PATH" envDefault:"data/symptom_precaution.csv"`

	// Classifiers: two trees on different splits cross-check each other
	PrimaryTestRatio   float64 `env:"PRIMARY_TEST_RATIO" envDefault:"0.33"`
	PrimarySeed        int64   `env:"PRIMARY_SEED" envDefault:"42"`
	SecondaryTestRatio float64 `env:"SECONDARY_TEST_RATIO" envDefault:"0.3"`
	SecondarySeed      int64   `env:"SECONDARY_SEED" envDefault:"20"`
	TreeMaxDepth       int     `env:"TREE_MAX_DEPTH" envDefault:"0"`

	RelatedLimit int `env:"RELATED_LIMIT" envDefault:"10"`

	// Audit trail
	HistoryBackend  HistoryBackend `env:"HISTORY_BACKEND" envDefault:"file"`
	HistoryFilePath string         `env:"HISTORY_FILE_PATH" envDefault:"data/conversation_history.json"`
	DatabaseURL     string         `env:"DATABASE_URL"`

	// Sessions and jobs
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SweepSchedule  string        `env:"SWEEP_SCHEDULE" envDefault:"*/10 * * * *"`
	ReportSchedule string        `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Telegram front end
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	// Chat that receives the daily report, 0 keeps it in the log
	ReportChatID     int64   `env:"REPORT_CHAT_ID"`

	// LLM settings for disease/drug lookups
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Empty disables PDF reports
	ReportFontPath string `env:"REPORT_FONT_PATH"`
}

// Load parses the environment and validates cross-field constraints.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	for name, r := range map[string]float64{
		"PRIMARY_TEST_RATIO":   c.PrimaryTestRatio,
		"SECONDARY_TEST_RATIO": c.SecondaryTestRatio,
	} {
		if r <= 0 || r >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", name, r)
		}
	}
	if c.RelatedLimit < 1 {
		return fmt.Errorf("RELATED_LIMIT must be >= 1, got %d", c.RelatedLimit)
	}
	switch c.HistoryBackend {
	case BackendFile:
		if c.HistoryFilePath == "" {
			return fmt.Errorf("HISTORY_FILE_PATH is required when HISTORY_BACKEND=file")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when HISTORY_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown history backend: %s", c.HistoryBackend)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex, ProviderNone:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	return nil
}
