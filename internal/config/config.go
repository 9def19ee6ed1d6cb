// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

type Config struct {
	LLM        LLMConfig
	Server     ServerConfig
	Storage    StorageConfig
	Pipeline   PipelineConfig
	Evaluation EvaluationConfig
	Log        LogConfig
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	// MaxTries is the number of corrective retries after the first
	// structured-output attempt.
	MaxTries int
}

type ServerConfig struct {
	Port    int
	MCPPort int
	Token   string
}

type StorageConfig struct {
	DataDir       string
	TranscriptDir string
	DatasetDir    string
	ReportDir     string
}

// PipelineConfig toggles the optional generation stages.
type PipelineConfig struct {
	AddContext          bool
	ExtractISOKnowledge bool
	GroupTopics         bool
	FilterRequirements  bool
	NewChecklists       bool
	NewContext          bool
}

// EvaluationConfig selects which evaluation levels run.
type EvaluationConfig struct {
	QuestionLevel    bool
	ChecklistLevel   bool
	RequirementLevel bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.2,
			MaxTries:    3,
		},
		Server: ServerConfig{
			Port:    4200,
			MCPPort: 4201,
		},
		Storage: StorageConfig{
			DataDir:       "data",
			TranscriptDir: "messages",
			DatasetDir:    "datasets",
			ReportDir:     "reports",
		},
		Pipeline: PipelineConfig{
			NewChecklists: true,
			NewContext:    true,
		},
		Evaluation: EvaluationConfig{
			QuestionLevel: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file (if present) and CHECKAUD_*
// environment variables, which always win. The API key is the only
// required value.
func Load() (Config, error) {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	cfg := defaults()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: API key. Set CHECKAUD_API_KEY or add it to .env")
	}
	if cfg.LLM.MaxTries < 0 {
		return Config{}, fmt.Errorf("CHECKAUD_MAX_TRIES must be >= 0, got %d", cfg.LLM.MaxTries)
	}
	return cfg, nil
}
